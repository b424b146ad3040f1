// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package ruby

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRubyImage(t *testing.T) {
	assert.Equal(t, "ruby:3.3", New("3.3", WithPrefix("ruby:")).RubyImage())
	assert.Equal(t, "3.3", New("3.3").RubyImage())
	assert.Equal(t, MasterImage, Master().RubyImage())
	assert.Equal(t, MasterImage, YJIT().RubyImage())
}

func TestImageKey(t *testing.T) {
	assert.Equal(t, "ruby-3-3", New("3.3", WithPrefix("ruby:")).ImageKey())
	assert.Equal(t, "builder-3-2", New("3.2", WithPrefix("builder:")).ImageKey())
	assert.Equal(t, "rubylang-ruby-master-nightly-jammy", Master().ImageKey())
	assert.Equal(t, Master().ImageKey(), YJIT().ImageKey())
	assert.Equal(t, "ruby-3-4_0", New("3.4_0", WithPrefix("ruby:")).ImageKey())
}

func TestImageNameFor(t *testing.T) {
	rc := New("3.3", WithPrefix("ruby:"))
	assert.Equal(t, "ruby-3-3-build_id", rc.ImageNameFor(DefaultSuffix))
	assert.Equal(t, "ruby-3-3-br-main", rc.ImageNameFor("br-main"))
	assert.Equal(t, rc.ImageNameFor("local"), rc.ImageNameFor("local"))
	assert.Equal(t, "ruby-3-4-0-local", New("3.4_0", WithPrefix("ruby:")).ImageNameFor("local"))
	assert.Equal(t, "ruby-3-4-0-rc1-local", New("3.4.0-rc1", WithPrefix("ruby:")).ImageNameFor("local"))
	assert.Equal(t, "rubylang-ruby-master-nightly-jammy-local", YJIT().ImageNameFor("local"))
}

func TestShortRuby(t *testing.T) {
	testcases := []struct {
		name     string
		config   Config
		expected string
	}{
		{"master", Master(), "master"},
		{"master debug", MasterDebug(), "master-debug"},
		{"yjit", YJIT(), "yjit"},
		{"plain version", New("3.2"), "3.2"},
		{"prefixed version", New("ruby:2.7.2"), "2.7.2"},
		{"latest tag", New("ruby:latest"), "latest"},
		{"trailing latest", New("3.3:latest"), "3.3"},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.config.ShortRuby())
		})
	}
}

func TestBuild(t *testing.T) {
	assert.True(t, Master().Build())
	assert.True(t, New("3.3").Build())
	assert.False(t, YJIT().Build())
}

func TestSpecialRubies(t *testing.T) {
	assert.True(t, Master().SoftFail)
	assert.True(t, MasterDebug().SoftFail)
	yjit := YJIT()
	assert.True(t, yjit.SoftFail)
	assert.True(t, yjit.YJIT)
	assert.Equal(t, "yjit:"+MasterImage, yjit.Version)
}

func TestEqual(t *testing.T) {
	assert.True(t, Master().Equal(Master()))
	assert.False(t, Master().Equal(YJIT()))
	assert.False(t, New("3.3", WithPrefix("ruby:")).Equal(New("3.3")))
	assert.False(t, New("3.3").Equal(New("3.3", WithSoftFail(true))))
	assert.True(t, New("3.3").HasVersion())
	assert.False(t, Config{}.HasVersion())
}

func TestName(t *testing.T) {
	assert.Equal(t, "ruby:3.3", New("3.3", WithPrefix("ruby:")).Name())
	assert.Equal(t, "yjit:"+MasterImage, YJIT().Name())
	assert.Equal(t, MasterImage, Master().String())
}
