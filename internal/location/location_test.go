package location

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calpin/internal/model"
	"calpin/internal/store"
	"calpin/internal/store/memory"
	"calpin/internal/validate"
)

func violations(t *testing.T, err error) validate.Violations {
	t.Helper()
	verr, ok := validate.AsError(err)
	require.True(t, ok, "expected *validate.Error, got %v", err)
	return verr.Violations
}

func TestValidateForCreate(t *testing.T) {
	loc, err := ValidateForCreate([]byte(`{"name":"Sagrada Família","center":[2.1744,41.4036],"userId":3,"date":"ignored"}`))
	require.NoError(t, err)
	assert.Equal(t, "Sagrada Família", loc.Name)
	assert.Equal(t, 2.1744, loc.Lng())
	assert.Equal(t, 41.4036, loc.Lat())
	assert.Equal(t, int64(3), loc.UserID)
}

func TestValidateForCreate_Required(t *testing.T) {
	_, err := ValidateForCreate([]byte(`{}`))
	vs := violations(t, err)
	assert.Len(t, vs, 3)
	assert.True(t, vs.Has("name"))
	assert.True(t, vs.Has("center"))
	assert.True(t, vs.Has("userId"))
}

func TestValidateForCreate_CenterShapeAndRange(t *testing.T) {
	cases := map[string]string{
		"too short":     `[1]`,
		"too long":      `[1,2,3]`,
		"not numbers":   `["a","b"]`,
		"not array":     `"1,2"`,
		"lng overflow":  `[181,0]`,
		"lat underflow": `[0,-90.5]`,
	}
	for name, center := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ValidateForCreate([]byte(`{"name":"x","userId":1,"center":` + center + `}`))
			vs := violations(t, err)
			require.Len(t, vs, 1)
			assert.Equal(t, "center", vs[0].Field)
		})
	}

	_, err := ValidateForCreate([]byte(`{"name":"edge","userId":1,"center":[-180,90]}`))
	assert.NoError(t, err)
}

func TestValidateForCreate_UserID(t *testing.T) {
	_, err := ValidateForCreate([]byte(`{"name":"x","center":[0,0],"userId":0}`))
	vs := violations(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, validate.KindInvariant, vs[0].Kind)

	loc, err := ValidateForCreate([]byte(`{"name":"x","center":[0,0],"userId":"12"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(12), loc.UserID)
}

func TestValidateForUpdate(t *testing.T) {
	existing := model.Location{ID: 4, Name: "Home", Center: [2]float64{2, 41}, UserID: 1}

	loc, err := ValidateForUpdate(existing, []byte(`{"name":"Flat"}`))
	require.NoError(t, err)
	assert.Equal(t, "Flat", loc.Name)
	assert.Equal(t, existing.Center, loc.Center)
	assert.Equal(t, int64(4), loc.ID)

	_, err = ValidateForUpdate(existing, []byte(`{"name":null}`))
	assert.True(t, violations(t, err).Has("name"))

	_, err = ValidateForUpdate(existing, []byte(`{"center":[0,100]}`))
	assert.True(t, violations(t, err).Has("center"))
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New())

	created, err := svc.Create(ctx, []byte(`{"name":"Home","center":[2,41],"userId":1}`))
	require.NoError(t, err)
	assert.False(t, created.Date.IsZero())

	updated, err := svc.Update(ctx, created.ID, []byte(`{"center":[2.5,41.5]}`))
	require.NoError(t, err)
	assert.Equal(t, [2]float64{2.5, 41.5}, updated.Center)
	assert.Equal(t, created.Date, updated.Date)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Update(ctx, created.ID, []byte(`{"name":"x"}`))
	assert.ErrorIs(t, err, store.ErrNotFound)
}
