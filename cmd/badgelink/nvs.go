package main

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/badgeops/badgelink/internal/link"
	"github.com/badgeops/badgelink/internal/protocol"
)

var nvsCmd = &cobra.Command{
	Use:   "nvs",
	Short: "Non-volatile key/value store actions",
}

func init() {
	lsCmd := &cobra.Command{
		Use:   "ls [namespace]",
		Short: "List stored keys, optionally within one namespace",
		Args:  cobra.MaximumNArgs(1),
		RunE: withLink(func(l *link.Link, args []string) error {
			namespace := ""
			if len(args) == 1 {
				namespace = args[0]
			}
			entries, err := l.NvsList(namespace)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%-16s %-16s %s\n", e.Namespace, e.Key, e.Type)
			}
			return nil
		}),
	}

	readCmd := &cobra.Command{
		Use:   "read {namespace} {key} {type}",
		Short: "Read one typed value",
		Args:  cobra.ExactArgs(3),
		RunE: withLink(func(l *link.Link, args []string) error {
			typ, err := protocol.ParseNvsValueType(args[2])
			if err != nil {
				return err
			}
			val, err := l.NvsRead(args[0], args[1], typ)
			if err != nil {
				return err
			}
			fmt.Println(formatNvsValue(val))
			return nil
		}),
	}

	writeCmd := &cobra.Command{
		Use:   "write {namespace} {key} {type} {value}",
		Short: "Write one typed value",
		Args:  cobra.ExactArgs(4),
		RunE: withLink(func(l *link.Link, args []string) error {
			val, err := parseNvsValue(args[2], args[3])
			if err != nil {
				return err
			}
			return l.NvsWrite(args[0], args[1], val)
		}),
	}

	rmCmd := &cobra.Command{
		Use:   "rm {namespace} {key}",
		Short: "Delete one key",
		Args:  cobra.ExactArgs(2),
		RunE: withLink(func(l *link.Link, args []string) error {
			return l.NvsDelete(args[0], args[1])
		}),
	}

	nvsCmd.AddCommand(lsCmd, readCmd, writeCmd, rmCmd)
}

// parseNvsValue turns a command-line type name and literal into a typed
// value. Numeric literals are decimal, blobs are hex.
func parseNvsValue(typeName, literal string) (protocol.NvsValue, error) {
	typ, err := protocol.ParseNvsValueType(typeName)
	if err != nil {
		return protocol.NvsValue{}, err
	}
	switch typ {
	case protocol.NvsTypeString:
		return protocol.NvsString(literal), nil
	case protocol.NvsTypeBlob:
		raw, err := hex.DecodeString(literal)
		if err != nil {
			return protocol.NvsValue{}, fmt.Errorf("blob value must be hex: %w", err)
		}
		return protocol.NvsBlob(raw), nil
	case protocol.NvsTypeInt8, protocol.NvsTypeInt16, protocol.NvsTypeInt32, protocol.NvsTypeInt64:
		n, err := strconv.ParseInt(literal, 10, nvsIntBits(typ))
		if err != nil {
			return protocol.NvsValue{}, fmt.Errorf("bad %s value %q: %w", typ, literal, err)
		}
		switch typ {
		case protocol.NvsTypeInt8:
			return protocol.NvsInt8(int8(n)), nil
		case protocol.NvsTypeInt16:
			return protocol.NvsInt16(int16(n)), nil
		case protocol.NvsTypeInt32:
			return protocol.NvsInt32(int32(n)), nil
		default:
			return protocol.NvsInt64(n), nil
		}
	default:
		n, err := strconv.ParseUint(literal, 10, nvsIntBits(typ))
		if err != nil {
			return protocol.NvsValue{}, fmt.Errorf("bad %s value %q: %w", typ, literal, err)
		}
		return protocol.NvsValue{Type: typ, Numeric: n}, nil
	}
}

func nvsIntBits(typ protocol.NvsValueType) int {
	switch typ {
	case protocol.NvsTypeUint8, protocol.NvsTypeInt8:
		return 8
	case protocol.NvsTypeUint16, protocol.NvsTypeInt16:
		return 16
	case protocol.NvsTypeUint32, protocol.NvsTypeInt32:
		return 32
	default:
		return 64
	}
}

func formatNvsValue(val protocol.NvsValue) string {
	switch val.Type {
	case protocol.NvsTypeString:
		return val.Str
	case protocol.NvsTypeBlob:
		return hex.EncodeToString(val.Blob)
	case protocol.NvsTypeInt8:
		return strconv.FormatInt(int64(int8(val.Numeric)), 10)
	case protocol.NvsTypeInt16:
		return strconv.FormatInt(int64(int16(val.Numeric)), 10)
	case protocol.NvsTypeInt32:
		return strconv.FormatInt(int64(int32(val.Numeric)), 10)
	case protocol.NvsTypeInt64:
		return strconv.FormatInt(int64(val.Numeric), 10)
	default:
		return strconv.FormatUint(val.Numeric, 10)
	}
}
