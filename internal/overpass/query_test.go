package overpass

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelationQuery(t *testing.T) {
	q := RelationQuery(7382983, 60)
	assert.Equal(t, "[out:json][timeout:60];\nrelation(7382983);\n(._;>;);\nout geom;\n", q)
}

func TestRelationQuery_DefaultTimeout(t *testing.T) {
	q := RelationQuery(42, 0)
	assert.Contains(t, q, "[timeout:60]")
	assert.Contains(t, q, "relation(42);")
}
