package datarecording

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/sarchlab/memcfg/mem/memconfig"
	"github.com/sarchlab/memcfg/sim/hooking"
)

// Tables written by a PlanRecorder.
const (
	ChannelPlanTable = "channel_plan"
	MemCtrlTable     = "mem_ctrl"
)

// ChannelPlanRow is the recorded range of one channel.
type ChannelPlanRow struct {
	Type         string
	Tech         string
	RangeIndex   int
	Start        uint64
	Size         uint64
	IntlvLowBit  uint
	IntlvHighBit uint
	IntlvBits    uint
	IntlvMatch   uint64
	XorHighBit   uint
	LowBitSource string
}

// Descriptor converts the row back into a channel descriptor.
func (r ChannelPlanRow) Descriptor() memconfig.ChannelDescriptor {
	return memconfig.ChannelDescriptor{
		Start:        r.Start,
		Size:         r.Size,
		IntlvLowBit:  r.IntlvLowBit,
		IntlvHighBit: r.IntlvHighBit,
		IntlvBits:    r.IntlvBits,
		IntlvMatch:   r.IntlvMatch,
		XorHighBit:   r.XorHighBit,
	}
}

// MemCtrlRow is a recorded memory controller.
type MemCtrlRow struct {
	ID       string
	Name     string
	Kind     string
	DRAMType string
	NVMType  string
	Xbar     string
	Port     int
	Ranges   string
}

// PlanRecorder is a hook that records the channels and controllers that a
// memory configuration creates. Rows are held back until Flush or Close, so
// that the plan of a failed configuration can be dropped with Discard.
type PlanRecorder struct {
	recorder DataRecorder
	filename string

	pendingChannels []ChannelPlanRow
	pendingCtrls    []MemCtrlRow
}

// NewPlanRecorder creates a PlanRecorder that writes into a new database.
func NewPlanRecorder(path string) (*PlanRecorder, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}

	p := NewPlanRecorderWithRecorder(r)
	p.filename = DBFilename(path)

	return p, nil
}

// NewPlanRecorderWithRecorder creates a PlanRecorder on top of an existing
// recorder.
func NewPlanRecorderWithRecorder(r DataRecorder) *PlanRecorder {
	r.CreateTable(ChannelPlanTable, ChannelPlanRow{})
	r.CreateTable(MemCtrlTable, MemCtrlRow{})

	return &PlanRecorder{recorder: r}
}

// Func records the hook context if it is about a channel or a controller.
func (p *PlanRecorder) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case memconfig.HookPosChannelPlanned:
		p.recordChannel(ctx)
	case memconfig.HookPosCtrlConnected:
		p.recordCtrl(ctx)
	}
}

func (p *PlanRecorder) recordChannel(ctx hooking.HookCtx) {
	d := ctx.Item.(memconfig.ChannelDescriptor)
	detail := ctx.Detail.(memconfig.ChannelPlannedDetail)

	p.pendingChannels = append(p.pendingChannels, ChannelPlanRow{
		Type:         detail.TypeName,
		Tech:         detail.Tech,
		RangeIndex:   detail.RangeIndex,
		Start:        d.Start,
		Size:         d.Size,
		IntlvLowBit:  d.IntlvLowBit,
		IntlvHighBit: d.IntlvHighBit,
		IntlvBits:    d.IntlvBits,
		IntlvMatch:   d.IntlvMatch,
		XorHighBit:   d.XorHighBit,
		LowBitSource: detail.Source.String(),
	})
}

func (p *PlanRecorder) recordCtrl(ctx hooking.HookCtx) {
	ctrl := ctx.Item.(*memconfig.MemCtrl)

	row := MemCtrlRow{
		ID:   ctrl.ID,
		Name: ctrl.Name(),
		Kind: ctrl.Kind.String(),
		Xbar: ctrl.Xbar,
		Port: ctrl.Port,
	}

	if ctrl.DRAM != nil {
		row.DRAMType = ctrl.DRAM.TypeName
	}

	if ctrl.NVM != nil {
		row.NVMType = ctrl.NVM.TypeName
	}

	ranges := make([]string, 0, 2)
	for _, r := range ctrl.AddrRanges() {
		ranges = append(ranges, r.String())
	}

	row.Ranges = strings.Join(ranges, "; ")

	p.pendingCtrls = append(p.pendingCtrls, row)
}

// Flush writes the held rows.
func (p *PlanRecorder) Flush() {
	for _, row := range p.pendingChannels {
		p.recorder.InsertData(ChannelPlanTable, row)
	}

	for _, row := range p.pendingCtrls {
		p.recorder.InsertData(MemCtrlTable, row)
	}

	p.pendingChannels = nil
	p.pendingCtrls = nil

	p.recorder.Flush()
}

// Close writes the held rows and closes the database.
func (p *PlanRecorder) Close() error {
	p.Flush()
	return p.recorder.Close()
}

// Discard drops the held rows and closes the database. A database created by
// NewPlanRecorder is removed.
func (p *PlanRecorder) Discard() error {
	p.pendingChannels = nil
	p.pendingCtrls = nil

	if err := p.recorder.Close(); err != nil {
		return err
	}

	if p.filename == "" {
		return nil
	}

	err := os.Remove(p.filename)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// PlanReader reads the plan written by a PlanRecorder.
type PlanReader struct {
	reader DataReader
}

// NewPlanReader opens a recorded plan.
func NewPlanReader(path string) (*PlanReader, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}

	return NewPlanReaderWithReader(r), nil
}

// NewPlanReaderWithReader creates a PlanReader on top of an existing reader.
func NewPlanReaderWithReader(r DataReader) *PlanReader {
	r.MapTable(ChannelPlanTable, ChannelPlanRow{})
	r.MapTable(MemCtrlTable, MemCtrlRow{})

	return &PlanReader{reader: r}
}

// ReadChannelPlan returns the recorded channels in the order they were
// planned.
func (p *PlanReader) ReadChannelPlan(
	ctx context.Context,
) ([]ChannelPlanRow, error) {
	return readAll[ChannelPlanRow](ctx, p.reader, ChannelPlanTable)
}

// ReadMemCtrls returns the recorded controllers in the order they were
// connected.
func (p *PlanReader) ReadMemCtrls(ctx context.Context) ([]MemCtrlRow, error) {
	return readAll[MemCtrlRow](ctx, p.reader, MemCtrlTable)
}

// Close closes the database.
func (p *PlanReader) Close() error {
	return p.reader.Close()
}

func readAll[T any](
	ctx context.Context,
	r DataReader,
	tableName string,
) ([]T, error) {
	results, _, err := r.Query(ctx, tableName, QueryParams{OrderBy: "rowid"})
	if err != nil {
		return nil, err
	}

	rows := make([]T, 0, len(results))
	for _, res := range results {
		rows = append(rows, *res.(*T))
	}

	return rows, nil
}
