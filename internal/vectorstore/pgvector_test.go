package vectorstore_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fjglira/srd-testgen/internal/vectorstore"
)

var _ = Describe("PGVectorStore", func() {
	It("should render vectors in pgvector text form", func() {
		Expect(vectorstore.VectorLiteral([]float64{0.5, -1, 2.25})).To(Equal("[0.5,-1,2.25]"))
		Expect(vectorstore.VectorLiteral(nil)).To(Equal("[]"))
	})

	It("should call semantic_search with threshold and count", func() {
		db, err := gorm.Open(postgres.New(postgres.Config{
			DSN: "host=127.0.0.1 user=test dbname=test sslmode=disable",
		}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
		Expect(err).ToNot(HaveOccurred())

		store := vectorstore.NewPGVectorStore(db, 0.4, quietLogger())
		sql, vars := store.SearchSQL([]float64{1, 2}, 3)
		Expect(sql).To(ContainSubstring("FROM semantic_search("))
		Expect(vars).To(Equal([]any{"[1,2]", 0.4, 3}))
	})
})
