package core

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIDFromContent(t *testing.T) {
	assert.Equal(t, IDFromContent("invoice"), IDFromContent("invoice"))
	assert.NotEqual(t, IDFromContent("invoice"), IDFromContent("bill"))
}

func TestVectorRecordID(t *testing.T) {
	tenant := uuid.New()
	doc := uuid.New()

	id := VectorRecordID(tenant, "invoices", doc)
	assert.Equal(t, id, VectorRecordID(tenant, "invoices", doc))
	assert.NotEqual(t, id, VectorRecordID(tenant, "bills", doc))
	assert.NotEqual(t, id, VectorRecordID(uuid.New(), "invoices", doc))
	assert.NotEqual(t, id, VectorRecordID(tenant, "invoices", uuid.New()))
}
