package inputsample

import (
	"context"
	"strings"
	"testing"

	"github.com/pbanos/cart/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRequester struct {
	requested []string
	rejected  []string
}

func (rr *recordingRequester) RequestValueFor(f feature.Feature) error {
	rr.requested = append(rr.requested, f.Name())
	return nil
}

func (rr *recordingRequester) RejectValueFor(f feature.Feature, v string) error {
	rr.rejected = append(rr.rejected, v)
	return nil
}

var features = []feature.Feature{
	feature.NewNumericFeature("size"),
	feature.NewCategoricalFeature("color", []string{"red", "blue"}),
}

// TestValueForRejectsUntilValid verifies invalid lines are rejected and valid values remembered
func TestValueForRejectsUntilValid(t *testing.T) {
	ctx := context.Background()
	rr := &recordingRequester{}
	s := New(strings.NewReader("green\nblue\nbig\n2.5\n"), features, rr)
	v, err := s.ValueFor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, feature.Category("blue"), v)
	v, err = s.ValueFor(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, feature.Number(2.5), v)
	v, err = s.ValueFor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, feature.Category("blue"), v)
	assert.Equal(t, []string{"color", "size"}, rr.requested)
	assert.Equal(t, []string{"green", "big"}, rr.rejected)
	assert.Equal(t, []feature.Value{feature.Number(2.5), feature.Category("blue")}, s.Row())
}

func TestValueForErrors(t *testing.T) {
	ctx := context.Background()
	s := New(strings.NewReader(""), features, &recordingRequester{})
	_, err := s.ValueFor(ctx, 0)
	assert.Error(t, err)
	_, err = s.ValueFor(ctx, 2)
	assert.Error(t, err)
}
