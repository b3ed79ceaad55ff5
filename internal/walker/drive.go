package walker

import (
	"context"
	"log/slog"

	"github.com/custodia-labs/m365-crawler/internal/graph"
)

// DriveVisitor receives every item of a drive walk, folders included.
// Returning an error aborts the walk.
type DriveVisitor func(ctx context.Context, item graph.DriveItem) error

// DriveWalker traverses a drive's item tree in pre-order.
type DriveWalker struct {
	client *graph.Client
	log    *slog.Logger
}

// NewDriveWalker creates a drive walker. A nil logger uses slog's default.
func NewDriveWalker(client *graph.Client, log *slog.Logger) *DriveWalker {
	if log == nil {
		log = slog.Default()
	}
	return &DriveWalker{client: client, log: log}
}

// driveFrame is one directory level of the traversal: the page currently
// being consumed and the index of the next item within it.
type driveFrame struct {
	page *graph.Page[graph.DriveItem]
	idx  int
}

// Walk visits every item under the drive root, parents before children.
// Within a directory, the current page's items are fully descended before
// the next page is fetched. Subtrees that have vanished mid-walk are
// skipped silently; subtrees failing for any other reason are logged and
// skipped. A missing drive is not an error.
func (w *DriveWalker) Walk(ctx context.Context, driveID string, visit DriveVisitor) error {
	return w.WalkFrom(ctx, driveID, "root", visit)
}

// WalkFrom walks the subtree rooted at one item instead of the drive
// root. Pass "root" for the whole drive.
func (w *DriveWalker) WalkFrom(ctx context.Context, driveID, itemID string, visit DriveVisitor) error {
	root, err := w.client.ListItemChildren(ctx, driveID, itemID)
	if err != nil {
		if graph.IsNotFound(err) {
			w.log.Debug("drive not found, skipping", "drive", driveID)
			return nil
		}
		return err
	}

	stack := []*driveFrame{{page: root}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame := stack[len(stack)-1]
		if frame.idx >= len(frame.page.Items) {
			next, err := frame.page.Advance(ctx)
			if err != nil {
				w.log.Warn("failed to advance directory page, abandoning directory",
					"drive", driveID, "error", err)
				stack = stack[:len(stack)-1]
				continue
			}
			if next == nil {
				stack = stack[:len(stack)-1]
				continue
			}
			frame.page = next
			frame.idx = 0
			continue
		}

		item := frame.page.Items[frame.idx]
		frame.idx++

		if err := visit(ctx, item); err != nil {
			return err
		}

		if !item.IsFolder() {
			continue
		}
		children, err := w.client.ListItemChildren(ctx, driveID, item.ID)
		if err != nil {
			if graph.IsNotFound(err) {
				continue
			}
			w.log.Warn("failed to list folder children, skipping subtree",
				"drive", driveID, "folder", item.Name, "error", err)
			continue
		}
		stack = append(stack, &driveFrame{page: children})
	}
	return nil
}
