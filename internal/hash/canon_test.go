package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritaschain/veritaschain/internal/model"
)

func TestSum_KeyOrderDoesNotAffectHash(t *testing.T) {
	a := map[string]any{"b": 1, "a": 2}
	b := map[string]any{"a": 2, "b": 1}
	ha, err := Sum(a)
	require.NoError(t, err)
	hb, err := Sum(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestSum_Deterministic(t *testing.T) {
	e := model.Entity{LogicalID: "l1", Version: "1.0", Label: "Tech Corp"}
	h1, err := Entity(e)
	require.NoError(t, err)
	h2, err := Entity(e)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestSum_DerivedFieldsExcluded(t *testing.T) {
	e := model.Entity{LogicalID: "l1", Version: "1.0", Label: "Tech Corp"}
	h1, err := Entity(e)
	require.NoError(t, err)

	e2 := e
	e2.ID = "sha256:deadbeef"
	e2.CommitHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"
	h2, err := Entity(e2)
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "@id and commitHash must not affect the content hash")
}

func TestSum_DifferentContentDiffersHash(t *testing.T) {
	h1, err := Entity(model.Entity{LogicalID: "l1", Version: "1.0", Label: "Tech Corp"})
	require.NoError(t, err)
	h2, err := Entity(model.Entity{LogicalID: "l1", Version: "1.0", Label: "Tech Corp A"})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestValidate(t *testing.T) {
	good, err := Entity(model.Entity{LogicalID: "l1", Version: "1.0"})
	require.NoError(t, err)
	assert.NoError(t, Validate(good))
	assert.Error(t, Validate("not-a-hash"))
	assert.Error(t, Validate("sha256:tooshort"))
	assert.Error(t, Validate("sha256:"+"G"+good[8:]))
}

func TestCacheKey_Stable(t *testing.T) {
	k1 := CacheKey("sha256:aaa", "sha256:bbb")
	k2 := CacheKey("sha256:aaa", "sha256:bbb")
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 32) // 16 bytes hex-encoded
	assert.NotEqual(t, k1, CacheKey("sha256:aaa", "sha256:ccc"))
}
