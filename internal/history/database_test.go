package history

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zombor/invoice-check/internal/invoice"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newCheck := func(id string, created time.Time) *Check {
		rec := invoice.NewRecord()
		rec.InvoiceNumber = invoice.Ptr("INV-" + id)
		rec.GrossAmount = invoice.Ptr(decimal.RequireFromString("119.05"))
		return &Check{
			ID:         id,
			Filename:   id + "_invoice.pdf",
			Source:     SourceUpload,
			Record:     rec,
			Validation: invoice.Validate(*rec),
			CreatedAt:  created,
		}
	}

	Describe("SaveCheck and GetCheck", func() {
		var (
			check *Check
			got   *Check
			err   error
		)

		BeforeEach(func() {
			check = newCheck("a", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
			Expect(db.SaveCheck(check)).To(Succeed())
		})

		JustBeforeEach(func() {
			got, err = db.GetCheck("a")
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("round-trips the record", func() {
			Expect(got.ID).To(Equal("a"))
			Expect(got.Source).To(Equal(SourceUpload))
			Expect(got.Record.InvoiceNumber).To(HaveValue(Equal("INV-a")))
			Expect(got.Record.GrossAmount.Equal(decimal.RequireFromString("119.05"))).To(BeTrue())
			Expect(got.Validation.Errors).To(Equal(check.Validation.Errors))
			Expect(got.CreatedAt.Equal(check.CreatedAt)).To(BeTrue())
		})
	})

	Describe("GetCheck", func() {
		When("check does not exist", func() {
			It("returns ErrCheckNotFound", func() {
				_, err := db.GetCheck("nonexistent")
				Expect(err).To(MatchError(ErrCheckNotFound))
				Expect(err).To(MatchError(ContainSubstring("nonexistent")))
			})
		})
	})

	Describe("ListChecks", func() {
		When("checks exist", func() {
			BeforeEach(func() {
				Expect(db.SaveCheck(newCheck("old", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))).To(Succeed())
				Expect(db.SaveCheck(newCheck("new", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))).To(Succeed())
				Expect(db.SaveCheck(newCheck("mid", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))).To(Succeed())
			})

			It("returns them newest first", func() {
				checks, err := db.ListChecks()
				Expect(err).NotTo(HaveOccurred())
				ids := make([]string, 0, len(checks))
				for _, c := range checks {
					ids = append(ids, c.ID)
				}
				Expect(ids).To(Equal([]string{"new", "mid", "old"}))
			})
		})

		When("no checks exist", func() {
			It("returns an empty slice", func() {
				checks, err := db.ListChecks()
				Expect(err).NotTo(HaveOccurred())
				Expect(checks).NotTo(BeNil())
				Expect(checks).To(BeEmpty())
			})
		})
	})

	Describe("DeleteCheck", func() {
		BeforeEach(func() {
			Expect(db.SaveCheck(newCheck("a", time.Now()))).To(Succeed())
		})

		It("removes the check", func() {
			Expect(db.DeleteCheck("a")).To(Succeed())
			_, err := db.GetCheck("a")
			Expect(err).To(MatchError(ErrCheckNotFound))
		})

		When("check does not exist", func() {
			It("returns ErrCheckNotFound", func() {
				Expect(db.DeleteCheck("missing")).To(MatchError(ErrCheckNotFound))
			})
		})
	})

	Describe("reopening", func() {
		It("keeps saved checks", func() {
			Expect(db.SaveCheck(newCheck("a", time.Now()))).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())
			_, err = db.GetCheck("a")
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
