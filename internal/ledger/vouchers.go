package ledger

import (
	"context"
	"time"

	"ganhos/internal/core"
	"ganhos/internal/remote"
)

const KindVoucher = "voucher"

var voucherMessages = Messages{
	Load:   "Failed to load vouchers",
	Create: "Failed to add voucher",
	Update: "Failed to update voucher",
	Delete: "Failed to delete voucher",
}

type VoucherLedger = Ledger[core.Voucher, core.VoucherInput]

type voucherSource struct {
	remote.VoucherSource
}

func (s voucherSource) List(ctx context.Context, q remote.Query) ([]core.Voucher, error) {
	return s.ListVouchers(ctx, q)
}

func (s voucherSource) Create(ctx context.Context, in core.VoucherInput) error {
	return s.CreateVoucher(ctx, in)
}

func (s voucherSource) Update(ctx context.Context, id string, in core.VoucherInput) error {
	return s.UpdateVoucher(ctx, id, in)
}

func (s voucherSource) Delete(ctx context.Context, id string) error {
	return s.DeleteVoucher(ctx, id)
}

type Config struct {
	Settings SettingsSource
	Notifier Notifier
	// ServerDateFilter pushes the window to the list endpoint as from/to.
	ServerDateFilter bool
	Now              func() time.Time
}

// NewVoucherLedger loads vouchers unfiltered by default and narrows them to
// the active window locally.
func NewVoucherLedger(src remote.VoucherSource, cfg Config) *VoucherLedger {
	return New(Options[core.Voucher, core.VoucherInput]{
		Kind:             KindVoucher,
		Source:           voucherSource{src},
		Settings:         cfg.Settings,
		Messages:         voucherMessages,
		ServerDateFilter: cfg.ServerDateFilter,
		Notifier:         cfg.Notifier,
		DateOf:           func(in core.VoucherInput) time.Time { return in.Date.Time },
		Now:              cfg.Now,
	})
}
