package protocol

// Field IDs, stable per enclosing message. Adding a variant or status code
// must not break peers that ignore unknown ids.
const (
	// Envelope
	fidSerial   uint16 = 1
	fidSync     uint16 = 2
	fidRequest  uint16 = 3
	fidResponse uint16 = 4

	// Request
	fidReqUploadChunk uint16 = 1
	fidReqAppfsAction uint16 = 2
	fidReqFsAction    uint16 = 3
	fidReqNvsAction   uint16 = 4
	fidReqStartApp    uint16 = 5
	fidReqXferControl uint16 = 6

	// Response
	fidRespStatus        uint16 = 1
	fidRespDownloadChunk uint16 = 2
	fidRespAppfs         uint16 = 3
	fidRespFs            uint16 = 4
	fidRespNvs           uint16 = 5

	// Chunk
	fidChunkPosition uint16 = 1
	fidChunkData     uint16 = 2

	// AppfsActionReq
	fidAppfsType       uint16 = 1
	fidAppfsSlug       uint16 = 2
	fidAppfsMetadata   uint16 = 3
	fidAppfsCRC32      uint16 = 4
	fidAppfsListOffset uint16 = 5

	// AppfsMetadata
	fidMetaSlug    uint16 = 1
	fidMetaTitle   uint16 = 2
	fidMetaVersion uint16 = 3
	fidMetaSize    uint16 = 4

	// AppfsResp
	fidAppfsRespList  uint16 = 1
	fidAppfsRespMeta  uint16 = 2
	fidAppfsRespCRC32 uint16 = 3
	fidAppfsRespUsage uint16 = 4
	fidAppfsRespSize  uint16 = 5

	// AppfsList / FsList / NvsList (repeated entry + total)
	fidListEntry uint16 = 1
	fidListTotal uint16 = 2

	// FsActionReq
	fidFsType       uint16 = 1
	fidFsPath       uint16 = 2
	fidFsCRC32      uint16 = 3
	fidFsSize       uint16 = 4
	fidFsListOffset uint16 = 5

	// FsDirent
	fidDirentName  uint16 = 1
	fidDirentIsDir uint16 = 2
	fidDirentSize  uint16 = 3
	fidDirentMtime uint16 = 4

	// FsStat
	fidStatSize  uint16 = 1
	fidStatIsDir uint16 = 2
	fidStatMtime uint16 = 3
	fidStatCtime uint16 = 4

	// FsUsage
	fidUsageSize uint16 = 1
	fidUsageUsed uint16 = 2

	// FsResp
	fidFsRespList  uint16 = 1
	fidFsRespStat  uint16 = 2
	fidFsRespCRC32 uint16 = 3
	fidFsRespUsage uint16 = 4
	fidFsRespSize  uint16 = 5

	// NvsActionReq
	fidNvsType       uint16 = 1
	fidNvsNamespace  uint16 = 2
	fidNvsKey        uint16 = 3
	fidNvsReadType   uint16 = 4
	fidNvsWData      uint16 = 5
	fidNvsListOffset uint16 = 6

	// NvsValue
	fidValType    uint16 = 1
	fidValNumeric uint16 = 2
	fidValString  uint16 = 3
	fidValBlob    uint16 = 4

	// NvsEntry
	fidEntryNamespace uint16 = 1
	fidEntryKey       uint16 = 2
	fidEntryType      uint16 = 3

	// NvsResp
	fidNvsRespRData   uint16 = 1
	fidNvsRespEntries uint16 = 2

	// StartAppReq
	fidStartSlug uint16 = 1
	fidStartArg  uint16 = 2
)
