package main

import (
	"testing"

	"github.com/programme-lv/autograder/internal/environment"
	"github.com/programme-lv/autograder/internal/source/dirsource"
	"github.com/programme-lv/autograder/internal/source/objsource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSource(t *testing.T) {
	env := &environment.EnvConfig{S3Endpoint: "localhost:9000", S3Bucket: "subs"}

	src, err := newSource("dir", env, t.TempDir(), "42", nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &dirsource.Source{}, src)

	src, err = newSource("s3", env, t.TempDir(), "42", nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &objsource.Source{}, src)

	_, err = newSource("s3", &environment.EnvConfig{}, t.TempDir(), "42", nil, nil)
	assert.Error(t, err)

	_, err = newSource("ftp", env, t.TempDir(), "42", nil, nil)
	assert.Error(t, err)
}
