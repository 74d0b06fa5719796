package protocol

// Envelope is the top-level unit on the wire. A response's Serial must equal
// the serial of the request it answers. Sync envelopes carry no body and are
// used to resynchronize both peers after stream corruption.
type Envelope struct {
	Serial   uint32
	Sync     bool
	Request  *Request
	Response *Response
}

// Request is a tagged union; exactly one variant is populated.
type Request struct {
	UploadChunk *Chunk
	AppfsAction *AppfsActionReq
	FsAction    *FsActionReq
	NvsAction   *NvsActionReq
	StartApp    *StartAppReq
	XferControl XferSignal
}

// Response carries a status code plus at most one payload variant. A non-Ok
// status implies the payload is absent or advisory only.
type Response struct {
	Status        StatusCode
	DownloadChunk *Chunk
	Appfs         *AppfsResp
	Fs            *FsResp
	Nvs           *NvsResp
}

// Chunk is one bounded fragment of a larger payload, tagged with the byte
// offset of Data within the logical transfer.
type Chunk struct {
	Position uint64
	Data     []byte
}

// XferSignal is a control-plane message directed at the currently open
// transfer. XferNone marks an unset XferControl variant.
type XferSignal uint8

const (
	XferNone     XferSignal = 0
	XferContinue XferSignal = 1
	XferAbort    XferSignal = 2
	XferFinish   XferSignal = 3
)

func (s XferSignal) String() string {
	switch s {
	case XferContinue:
		return "continue"
	case XferAbort:
		return "abort"
	case XferFinish:
		return "finish"
	default:
		return "none"
	}
}

// FsActionType is shared by the AppFS and Fs subsystems; both present the
// same file-like surface even though their backing stores differ.
type FsActionType uint8

const (
	FsActionList FsActionType = iota + 1
	FsActionDelete
	FsActionMkdir
	FsActionUpload
	FsActionDownload
	FsActionStat
	FsActionCrc32
	FsActionGetUsage
	FsActionRmdir
)

func (t FsActionType) String() string {
	switch t {
	case FsActionList:
		return "list"
	case FsActionDelete:
		return "delete"
	case FsActionMkdir:
		return "mkdir"
	case FsActionUpload:
		return "upload"
	case FsActionDownload:
		return "download"
	case FsActionStat:
		return "stat"
	case FsActionCrc32:
		return "crc32"
	case FsActionGetUsage:
		return "usage"
	case FsActionRmdir:
		return "rmdir"
	default:
		return "unknown"
	}
}

// AppfsActionReq addresses the application partition by slug. Metadata and
// CRC32 are set for Upload; ListOffset for List.
type AppfsActionReq struct {
	Type       FsActionType
	Slug       string
	Metadata   *AppfsMetadata
	CRC32      uint32
	ListOffset uint32
}

// AppfsMetadata describes one installed application.
type AppfsMetadata struct {
	Slug    string
	Title   string
	Version uint16
	Size    uint64
}

// AppfsList is one page of application descriptors. TotalSize is the full
// count, so the initiator can paginate without an end-of-list marker.
type AppfsList struct {
	Entries   []AppfsMetadata
	TotalSize uint32
}

// AppfsResp carries the payload for one AppFS action.
type AppfsResp struct {
	List     *AppfsList
	Metadata *AppfsMetadata
	CRC32    uint32
	Usage    *FsUsage
	Size     uint64
}

// FsActionReq addresses the general filesystem by path. Size and CRC32 are
// set for Upload; ListOffset for List.
type FsActionReq struct {
	Type       FsActionType
	Path       string
	CRC32      uint32
	Size       uint64
	ListOffset uint32
}

// FsDirent is one directory entry.
type FsDirent struct {
	Name  string
	IsDir bool
	Size  uint64
	Mtime uint64
}

// FsStat is file metadata for one path.
type FsStat struct {
	Size  uint64
	IsDir bool
	Mtime uint64
	Ctime uint64
}

// FsUsage reports capacity and consumption of a storage medium, in bytes.
type FsUsage struct {
	Size uint64
	Used uint64
}

// FsList is one page of directory entries.
type FsList struct {
	Entries   []FsDirent
	TotalSize uint32
}

// FsResp carries the payload for one Fs action. Size is set on Download open
// so the initiator knows when to stop pulling chunks.
type FsResp struct {
	List  *FsList
	Stat  *FsStat
	CRC32 uint32
	Usage *FsUsage
	Size  uint64
}

// NvsActionType enumerates key/value store actions.
type NvsActionType uint8

const (
	NvsActionList NvsActionType = iota + 1
	NvsActionRead
	NvsActionWrite
	NvsActionDelete
)

func (t NvsActionType) String() string {
	switch t {
	case NvsActionList:
		return "list"
	case NvsActionRead:
		return "read"
	case NvsActionWrite:
		return "write"
	case NvsActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// NvsActionReq addresses the key/value store by namespace and key. ReadType
// declares the expected value kind for Read; WData is set for Write.
type NvsActionReq struct {
	Type       NvsActionType
	Namespace  string
	Key        string
	ReadType   NvsValueType
	WData      *NvsValue
	ListOffset uint32
}

// NvsEntry identifies one stored key and its value kind.
type NvsEntry struct {
	Namespace string
	Key       string
	Type      NvsValueType
}

// NvsList is one page of NVS entries.
type NvsList struct {
	Entries      []NvsEntry
	TotalEntries uint32
}

// NvsResp carries the payload for one NVS action.
type NvsResp struct {
	RData   *NvsValue
	Entries *NvsList
}

// StartAppReq launches an installed application by slug.
type StartAppReq struct {
	Slug string
	Arg  string
}
