package rim_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/megashaper/shaper/rim"
	"github.com/stretchr/testify/assert"
)

func TestErrorMatching(t *testing.T) {
	err := fmt.Errorf("request: %w", &rim.Error{Kind: rim.KindHoleOverlap, Component: rim.CompFeatures, Msg: "too wide"})
	assert.ErrorIs(t, err, rim.ErrHoleOverlap)
	assert.NotErrorIs(t, err, rim.ErrDegenerate)
	assert.ErrorIs(t, err, &rim.Error{Kind: rim.KindHoleOverlap, Component: rim.CompFeatures})
	assert.NotErrorIs(t, err, &rim.Error{Kind: rim.KindHoleOverlap, Component: rim.CompProfile})
	assert.Equal(t, rim.KindHoleOverlap, rim.KindOf(err))
	assert.Equal(t, rim.CompFeatures, rim.ComponentOf(err))
	assert.Equal(t, "features: HoleOverlap: too wide", errors.Unwrap(err).Error())
}

func TestWrapKeepsOrigin(t *testing.T) {
	orig := &rim.Error{Kind: rim.KindDegenerate, Component: rim.CompProfile}
	assert.Same(t, orig, rim.Wrap(orig, rim.KindInternal, rim.CompAssembler, "again"))

	w := rim.Wrap(context.DeadlineExceeded, rim.KindTimeout, rim.CompExporter, "tessellating")
	assert.ErrorIs(t, w, context.DeadlineExceeded)
	assert.ErrorIs(t, w, rim.ErrTimeout)
	assert.Nil(t, rim.Wrap(nil, rim.KindInternal, rim.CompExporter, ""))

	assert.Equal(t, rim.KindInternal, rim.KindOf(errors.New("foreign")))
	assert.Empty(t, rim.ComponentOf(errors.New("foreign")))
}

func TestRetryable(t *testing.T) {
	for _, k := range []rim.Kind{rim.KindTimeout, rim.KindOverloaded} {
		assert.True(t, k.Retryable(), k)
	}
	for _, k := range []rim.Kind{rim.KindValidation, rim.KindDegenerate, rim.KindHoleOverlap, rim.KindNonManifold, rim.KindUnimplemented} {
		assert.False(t, k.Retryable(), k)
	}
}
