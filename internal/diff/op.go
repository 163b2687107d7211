package diff

import "fmt"

// OpType tags a SyncOperation variant.
type OpType uint8

const (
	OpDeleteFile OpType = iota
	OpDeleteDir
	OpMkdir
	OpCopyFile
	OpUpdateFile
)

var opTypeNames = []string{
	"deleteFile",
	"deleteDir",
	"mkdir",
	"copyFile",
	"updateFile",
}

func (op OpType) String() string {
	if int(op) >= len(opTypeNames) {
		return "unknown"
	}
	return opTypeNames[op]
}

// SyncOperation is one filesystem operation needed to bring the
// destination tree in line with the source. Operations are plain
// values; executing them is the consumer's job.
type SyncOperation struct {
	Type OpType
	// Rel is the operand's path relative to both roots.
	Rel string
	// Src is the absolute source path. Empty for deletes and mkdirs.
	Src string
	// Dst is the absolute destination path.
	Dst string
}

func (op SyncOperation) String() string {
	switch op.Type {
	case OpCopyFile, OpUpdateFile:
		return fmt.Sprintf("%s %s -> %s", op.Type, op.Src, op.Dst)
	default:
		return fmt.Sprintf("%s %s", op.Type, op.Dst)
	}
}

func copyFileOp(rel, src, dst string) SyncOperation {
	return SyncOperation{Type: OpCopyFile, Rel: rel, Src: src, Dst: dst}
}

func updateFileOp(rel, src, dst string) SyncOperation {
	return SyncOperation{Type: OpUpdateFile, Rel: rel, Src: src, Dst: dst}
}

func mkdirOp(rel, dst string) SyncOperation {
	return SyncOperation{Type: OpMkdir, Rel: rel, Dst: dst}
}

func deleteFileOp(rel, dst string) SyncOperation {
	return SyncOperation{Type: OpDeleteFile, Rel: rel, Dst: dst}
}

func deleteDirOp(rel, dst string) SyncOperation {
	return SyncOperation{Type: OpDeleteDir, Rel: rel, Dst: dst}
}
