package treesync

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/cryptolalia-tree/pkg/timeline"
	"google.golang.org/protobuf/encoding/protowire"
)

// Command is a kind of the request.
type Command uint8

const (
	// CmdRefuse rejects the request referenced by the control frame.
	CmdRefuse Command = iota
	// CmdAbort cancels the request referenced by the control frame.
	CmdAbort
	// CmdGetBranchRoute requests branch route of the given time.
	CmdGetBranchRoute
	// CmdGetBranchChildren requests children hashes of the given branch.
	CmdGetBranchChildren
	// CmdDownloadByBranchID requests level-0 branch block.
	CmdDownloadByBranchID
)

// String implements fmt.Stringer.
func (c Command) String() string {
	switch c {
	case CmdRefuse:
		return "REFUSE"
	case CmdAbort:
		return "ABORT"
	case CmdGetBranchRoute:
		return "GET_BRANCH_ROUTE"
	case CmdGetBranchChildren:
		return "GET_BRANCH_CHILDREN"
	case CmdDownloadByBranchID:
		return "DOWNLOAD_BY_BRANCHID"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(c))
	}
}

// ControlID is a request id reserved for control frames.
const ControlID = 0

// Frame is a single message of the sync protocol. Requests and responses
// are matched by ReqID.
type Frame struct {
	ReqID    uint64
	Response bool
	Cmd      Command

	// Request arguments.
	Time     int64
	BranchID uint64
	Level    uint32
	// Target is a request referenced by the control frame.
	Target uint64

	// Response payload.
	Route    timeline.Route
	Children []timeline.Child
	// Block is a binary level-0 block, nil if there is none.
	Block []byte
	// Error is non-empty if remote failed to process the request.
	Error string
}

const (
	fieldReqID protowire.Number = iota + 1
	fieldResponse
	fieldCmd
	fieldTime
	fieldBranchID
	fieldLevel
	fieldTarget
	fieldRoute
	fieldChild
	fieldBlock
	fieldError
)

const (
	fieldNodeLevel protowire.Number = iota + 1
	fieldNodeBranchID
	fieldNodeHash
)

var errInvalidFrame = errors.New("invalid frame")

// Marshal returns wire representation of the frame.
func (f *Frame) Marshal() []byte {
	var b []byte

	b = appendVarint(b, fieldReqID, f.ReqID)
	if f.Response {
		b = appendVarint(b, fieldResponse, 1)
	}
	b = appendVarint(b, fieldCmd, uint64(f.Cmd))
	if f.Time != 0 {
		b = appendVarint(b, fieldTime, protowire.EncodeZigZag(f.Time))
	}
	if f.BranchID != 0 {
		b = appendVarint(b, fieldBranchID, f.BranchID)
	}
	if f.Level != 0 {
		b = appendVarint(b, fieldLevel, uint64(f.Level))
	}
	if f.Target != 0 {
		b = appendVarint(b, fieldTarget, f.Target)
	}

	for _, n := range f.Route {
		var nb []byte
		nb = appendVarint(nb, fieldNodeLevel, uint64(n.Level))
		nb = appendVarint(nb, fieldNodeBranchID, n.BranchID)
		nb = appendBytes(nb, fieldNodeHash, n.Hash)
		b = appendBytes(b, fieldRoute, nb)
	}
	for _, c := range f.Children {
		var cb []byte
		cb = appendVarint(cb, fieldNodeBranchID, c.BranchID)
		cb = appendBytes(cb, fieldNodeHash, c.Hash)
		b = appendBytes(b, fieldChild, cb)
	}

	if f.Block != nil {
		b = appendBytes(b, fieldBlock, f.Block)
	}
	if f.Error != "" {
		b = appendBytes(b, fieldError, []byte(f.Error))
	}
	return b
}

// Unmarshal restores frame from its wire representation.
func (f *Frame) Unmarshal(b []byte) error {
	*f = Frame{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", errInvalidFrame, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && num <= fieldTarget:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %w", errInvalidFrame, num, protowire.ParseError(n))
			}
			b = b[n:]
			f.setVarint(num, v)
		case typ == protowire.BytesType && num >= fieldRoute && num <= fieldError:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %w", errInvalidFrame, num, protowire.ParseError(n))
			}
			b = b[n:]
			if err := f.setBytes(num, v); err != nil {
				return err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %w", errInvalidFrame, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}

func (f *Frame) setVarint(num protowire.Number, v uint64) {
	switch num {
	case fieldReqID:
		f.ReqID = v
	case fieldResponse:
		f.Response = v != 0
	case fieldCmd:
		f.Cmd = Command(v)
	case fieldTime:
		f.Time = protowire.DecodeZigZag(v)
	case fieldBranchID:
		f.BranchID = v
	case fieldLevel:
		f.Level = uint32(v)
	case fieldTarget:
		f.Target = v
	}
}

func (f *Frame) setBytes(num protowire.Number, v []byte) error {
	switch num {
	case fieldRoute:
		var n timeline.RouteNode
		err := consumeNested(v, func(num protowire.Number, u uint64, b []byte) {
			switch num {
			case fieldNodeLevel:
				n.Level = int(u)
			case fieldNodeBranchID:
				n.BranchID = u
			case fieldNodeHash:
				n.Hash = b
			}
		})
		if err != nil {
			return err
		}
		f.Route = append(f.Route, n)
	case fieldChild:
		var c timeline.Child
		err := consumeNested(v, func(num protowire.Number, u uint64, b []byte) {
			switch num {
			case fieldNodeBranchID:
				c.BranchID = u
			case fieldNodeHash:
				c.Hash = b
			}
		})
		if err != nil {
			return err
		}
		f.Children = append(f.Children, c)
	case fieldBlock:
		f.Block = append([]byte{}, v...)
	case fieldError:
		f.Error = string(v)
	}
	return nil
}

// consumeNested parses varint and bytes fields of the embedded message.
func consumeNested(b []byte, f func(protowire.Number, uint64, []byte)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", errInvalidFrame, protowire.ParseError(n))
		}
		b = b[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: %w", errInvalidFrame, protowire.ParseError(n))
			}
			b = b[n:]
			f(num, v, nil)
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%w: %w", errInvalidFrame, protowire.ParseError(n))
			}
			b = b[n:]
			f(num, 0, append([]byte{}, v...))
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: %w", errInvalidFrame, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}
