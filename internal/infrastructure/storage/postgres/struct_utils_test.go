package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"yiyostore/internal/core/entity"
	"yiyostore/internal/core/id"
)

type mockCatalog struct {
	entity.Catalog
	Email string `db:"email" json:"email"`
	Skip  string `db:"-"`
}

func TestExtractDBColumns_EmbeddedStructs(t *testing.T) {
	cols := ExtractDBColumns[mockCatalog]()

	expectedCols := []string{
		"id", "deletion_mark", "version", "code", "name", "email",
	}
	for _, expected := range expectedCols {
		assert.Contains(t, cols, expected)
	}
	assert.NotContains(t, cols, "-")
	assert.Len(t, cols, len(expectedCols))
}

func TestStructToMap_EmbeddedStructs(t *testing.T) {
	cat := mockCatalog{
		Catalog: entity.Catalog{
			BaseEntity: entity.BaseEntity{
				ID:           id.New(),
				DeletionMark: true,
				Version:      5,
			},
			Code: "TEST",
			Name: "Test Name",
		},
		Email: "test@example.com",
		Skip:  "ignored",
	}

	m := StructToMap(cat)

	assert.Equal(t, cat.ID, m["id"])
	assert.Equal(t, true, m["deletion_mark"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "TEST", m["code"])
	assert.Equal(t, "Test Name", m["name"])
	assert.Equal(t, "test@example.com", m["email"])
	assert.NotContains(t, m, "-")
}

func TestStructToMap_PointerInput(t *testing.T) {
	cat := &mockCatalog{
		Catalog: entity.Catalog{Code: "PTR", Name: "Pointer"},
	}

	m := StructToMap(cat)
	assert.Equal(t, "PTR", m["code"])
	assert.Equal(t, "Pointer", m["name"])
}
