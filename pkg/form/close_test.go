package form

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Mapper close protocol", func() {
	var (
		f   *fixture
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		f = newFixture(GinkgoT(), nil)
	})

	Context("when no control was edited", func() {
		It("closes without asking", func() {
			Expect(f.mapper.RequestClose(ctx)).To(BeTrue())
			Expect(f.host.prompts).To(BeZero())
		})

		It("rejects on cancel without asking", func() {
			f.mapper.Cancel(ctx)
			Expect(f.host.rejected).To(Equal(1))
			Expect(f.host.prompts).To(BeZero())
		})

		It("reports a clean form", func() {
			dirty, _ := f.mapper.CheckDirty()
			Expect(dirty).To(BeFalse())
		})
	})

	Context("when a control was edited", func() {
		BeforeEach(func() {
			f.code.SetText("P001")
		})

		It("asks the user once", func() {
			f.host.answer = Cancel
			dirty, resp := f.mapper.CheckDirty()
			Expect(dirty).To(BeTrue())
			Expect(resp).To(Equal(Cancel))
			Expect(f.host.prompts).To(Equal(1))
		})

		It("keeps the window open on Cancel", func() {
			f.host.answer = Cancel
			Expect(f.mapper.RequestClose(ctx)).To(BeFalse())
			f.mapper.Cancel(ctx)
			Expect(f.host.rejected).To(BeZero())
			Expect(f.store.created).To(BeEmpty())
		})

		It("discards the edits on No", func() {
			f.host.answer = No
			Expect(f.mapper.RequestClose(ctx)).To(BeTrue())
			f.mapper.Cancel(ctx)
			Expect(f.host.rejected).To(Equal(1))
			Expect(f.store.created).To(BeEmpty())
		})

		It("submits on Yes and stays open while the form is invalid", func() {
			f.host.answer = Yes
			Expect(f.mapper.RequestClose(ctx)).To(BeFalse())
			Expect(f.store.created).To(BeEmpty())
			Expect(f.mapper.Errors()).To(ConsistOf("Name is a required field."))
			Expect(f.host.accepted).To(BeZero())
		})

		It("submits on Yes and accepts once saved", func() {
			f.name.SetText("Parcel A")
			f.host.answer = Yes
			Expect(f.mapper.RequestClose(ctx)).To(BeFalse())
			Expect(f.store.created).To(HaveLen(1))
			Expect(f.host.accepted).To(Equal(1))
			Expect(f.mapper.IsDirty()).To(BeFalse())
		})

		It("submits from the cancel button on Yes", func() {
			f.name.SetText("Parcel A")
			f.host.answer = Yes
			f.mapper.Cancel(ctx)
			Expect(f.store.created).To(HaveLen(1))
			Expect(f.host.rejected).To(BeZero())
			Expect(f.host.accepted).To(Equal(1))
		})
	})

	Context("after a control is reverted", func() {
		It("is clean again", func() {
			f.code.SetText("P001")
			f.code.SetText("")
			Expect(f.mapper.IsDirty()).To(BeFalse())
			Expect(f.mapper.RequestClose(ctx)).To(BeTrue())
		})
	})
})
