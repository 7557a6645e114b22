package hooking

import (
	"bytes"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type namedDomain struct {
	HookableBase
}

func (d *namedDomain) Name() string { return "Domain" }

type countingHook struct {
	positions []string
}

func (h *countingHook) Func(ctx HookCtx) {
	h.positions = append(h.positions, ctx.Pos.Name)
}

var _ = Describe("HookableBase", func() {
	var (
		domain *namedDomain
		hook   *countingHook
	)

	BeforeEach(func() {
		domain = &namedDomain{}
		hook = &countingHook{}
	})

	It("should invoke registered hooks", func() {
		domain.AcceptHook(hook)
		domain.InvokeHook(HookCtx{Domain: domain, Pos: &HookPos{Name: "a"}})
		domain.InvokeHook(HookCtx{Domain: domain, Pos: &HookPos{Name: "b"}})

		Expect(domain.NumHooks()).To(Equal(1))
		Expect(domain.Hooks()).To(ConsistOf(hook))
		Expect(hook.positions).To(Equal([]string{"a", "b"}))
	})

	It("should panic on duplicated hooks", func() {
		domain.AcceptHook(hook)
		Expect(func() { domain.AcceptHook(hook) }).To(Panic())
	})
})

var _ = Describe("LogHook", func() {
	var (
		buf    *bytes.Buffer
		logger *slog.Logger
		domain *namedDomain
	)

	BeforeEach(func() {
		buf = new(bytes.Buffer)
		logger = slog.New(slog.NewTextHandler(buf,
			&slog.HandlerOptions{Level: slog.LevelDebug}))
		domain = &namedDomain{}
	})

	It("should log the position with the domain name", func() {
		h := NewLogHook(logger)
		h.Func(HookCtx{
			Domain: domain,
			Pos:    &HookPos{Name: "channel planned"},
			Item:   "item-1",
			Detail: 3,
		})

		out := buf.String()
		Expect(out).To(ContainSubstring("level=INFO"))
		Expect(out).To(ContainSubstring(`msg="channel planned"`))
		Expect(out).To(ContainSubstring("domain=Domain"))
		Expect(out).To(ContainSubstring("item=item-1"))
		Expect(out).To(ContainSubstring("detail=3"))
	})

	It("should use the level of the position", func() {
		h := NewLogHook(logger)
		h.Func(HookCtx{
			Domain: domain,
			Pos:    &HookPos{Name: "odd", Level: slog.LevelWarn},
		})

		Expect(buf.String()).To(ContainSubstring("level=WARN"))
	})

	It("should ignore contexts without position", func() {
		NewLogHook(logger).Func(HookCtx{Domain: domain})
		Expect(buf.Len()).To(Equal(0))
	})
})
