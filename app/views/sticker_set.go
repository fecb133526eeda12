package views

import (
	"context"
	"fmt"
	"strings"

	"nuclight.org/tgweb/app/stores"
	"nuclight.org/tgweb/pkg/logger"
	"nuclight.org/tgweb/pkg/td"
)

// StickerSetDialog previews the sticker set held by the sticker store and
// installs or removes it.
type StickerSetDialog struct {
	lifecycle

	log      logger.Logger
	gw       Gateway
	stickers *stores.StickerStore

	set     *td.StickerSet
	pending bool
	toggles int
	err     error
}

func NewStickerSetDialog(log logger.Logger, gw Gateway, stickers *stores.StickerStore) *StickerSetDialog {
	return &StickerSetDialog{
		log:      log.With("view", "sticker_set"),
		gw:       gw,
		stickers: stickers,
	}
}

func (d *StickerSetDialog) Mount(_ context.Context) {
	if !d.mount() {
		return
	}

	// A request left in flight by an earlier mount no longer blocks Toggle.
	d.pending = false
	d.err = nil
	d.set = d.stickers.StickerSet()
	d.subs.Add(
		d.stickers.On(td.TypeClientUpdateStickerSet, d.onStickerSet),
		d.stickers.On(td.TypeUpdateInstalledStickerSets, d.onStickerSet),
	)
}

func (d *StickerSetDialog) Unmount() {
	d.unmount()
}

func (d *StickerSetDialog) onStickerSet(td.Object) error {
	d.set = d.stickers.StickerSet()
	d.err = nil
	return nil
}

func (d *StickerSetDialog) StickerSet() *td.StickerSet {
	return d.set
}

func (d *StickerSetDialog) Pending() bool {
	return d.pending
}

// Toggle installs the set, or removes it if it is installed. The store picks
// up the change from the engine's updateInstalledStickerSets.
func (d *StickerSetDialog) Toggle(ctx context.Context) {
	if d.set == nil || d.pending {
		return
	}

	d.pending = true
	d.toggles++
	seq := d.toggles
	req := td.ChangeStickerSet{
		SetID:       d.set.ID,
		IsInstalled: !d.set.IsInstalled,
	}
	d.gw.SendThen(ctx, req, func(_ td.Response, err error) {
		if !d.Mounted() || seq != d.toggles {
			return
		}

		d.pending = false
		if err != nil {
			d.err = err
			d.log.Warn("changing sticker set", "set_id", int64(req.SetID), "error", err)
		}
	})
}

// Close hides the dialog by clearing the store.
func (d *StickerSetDialog) Close() {
	d.gw.ClientUpdate(&td.ClientUpdateStickerSet{StickerSet: nil})
}

func (d *StickerSetDialog) Render() string {
	set := d.set
	if set == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(styleTitle.Render(set.Title))
	b.WriteString("\n")

	emoji := make([]string, 0, len(set.Stickers))
	for _, s := range set.Stickers {
		emoji = append(emoji, s.Emoji)
	}
	b.WriteString(strings.Join(emoji, " "))
	b.WriteString("\n\n")

	if d.err != nil {
		b.WriteString(styleError.Render(d.err.Error()))
		b.WriteString("\n")
	}

	verb := "Add"
	if set.IsInstalled {
		verb = "Remove"
	}
	label := fmt.Sprintf("%s %d stickers", verb, len(set.Stickers))
	if d.pending {
		label = styleMuted.Render(label)
	}
	b.WriteString(button(label))

	return styleDialog.Render(b.String())
}
