package views

import (
	"context"
	"fmt"

	"nuclight.org/tgweb/app/stores"
	"nuclight.org/tgweb/pkg/td"
)

// DocumentAction shows the size and transfer state of a document and the
// action available for it.
type DocumentAction struct {
	lifecycle

	files  *stores.FileStore
	onOpen func()

	file     *td.File
	prevFile *td.File
}

func NewDocumentAction(files *stores.FileStore, file td.File, onOpen func()) *DocumentAction {
	a := &DocumentAction{
		files:  files,
		onOpen: onOpen,
	}
	a.reset(file)

	return a
}

func (a *DocumentAction) Mount(_ context.Context) {
	if !a.mount() {
		return
	}

	a.subs.Add(a.files.On(td.TypeUpdateFile, a.onUpdateFile))
}

func (a *DocumentAction) Unmount() {
	a.unmount()
}

func (a *DocumentAction) onUpdateFile(o td.Object) error {
	u, ok := o.(*td.UpdateFile)
	if !ok || a.file == nil || a.file.ID != u.File.ID {
		return nil
	}

	next := u.File
	a.prevFile = a.file
	a.file = &next
	return nil
}

// SetFile points the action at another document.
func (a *DocumentAction) SetFile(file td.File) {
	if a.file != nil && a.file.ID == file.ID {
		return
	}
	a.reset(file)
}

func (a *DocumentAction) reset(file td.File) {
	a.prevFile = nil
	if known := a.files.Get(file.ID); known != nil {
		a.file = known
		return
	}
	a.file = &file
}

func (a *DocumentAction) File() *td.File {
	return a.file
}

// SizeLabel is "progress/size" while a transfer is running, otherwise the size.
func (a *DocumentAction) SizeLabel() string {
	f := a.file
	size := FormatSize(fileSize(f))

	switch {
	case f.Local.IsDownloadingActive:
		return FormatSize(f.Local.DownloadedSize) + "/" + size
	case f.Remote.IsUploadingActive:
		return FormatSize(f.Remote.UploadedSize) + "/" + size
	default:
		return size
	}
}

// Action is "Cancel" during a transfer, "Save" once the content is available
// locally, and empty otherwise.
func (a *DocumentAction) Action() string {
	f := a.file

	switch {
	case f.Local.IsDownloadingActive || f.Remote.IsUploadingActive:
		return "Cancel"
	case f.Local.IsDownloadingCompleted || f.IDBKey != "":
		return "Save"
	default:
		return ""
	}
}

// Activate runs the action, if there is one.
func (a *DocumentAction) Activate() {
	if a.Action() == "" || a.onOpen == nil {
		return
	}
	a.onOpen()
}

func (a *DocumentAction) Render() string {
	out := a.SizeLabel() + " "
	if action := a.Action(); action != "" {
		out += button(action)
	}
	return out
}

func fileSize(f *td.File) int64 {
	if f.Size != 0 {
		return f.Size
	}
	return f.ExpectedSize
}

// FormatSize renders a byte count as B, KB or MB.
func FormatSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/1024/1024)
	}
}
