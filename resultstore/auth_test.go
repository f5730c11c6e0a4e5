// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resultstore

import (
	"context"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleAuthFlagsValidate(t *testing.T) {
	assert.NoError(t, (&GoogleAuthFlags{}).Validate())
	assert.NoError(t, (&GoogleAuthFlags{ServiceAccountCredentialFile: "sa.json"}).Validate())
	assert.NoError(t, (&GoogleAuthFlags{OAuthClientCredentialFile: "c.json", TokenFile: "t.json"}).Validate())
	assert.Error(t, (&GoogleAuthFlags{OAuthClientCredentialFile: "c.json"}).Validate())
}

func TestGoogleAuthFlagsBind(t *testing.T) {
	f := &GoogleAuthFlags{}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--google-service-account-credential-file=sa.json"}))
	assert.Equal(t, "sa.json", f.ServiceAccountCredentialFile)
}

func TestStorageOptionsDefault(t *testing.T) {
	// No flags set: fall through to application default
	// credentials, i.e. no explicit options.
	opts, err := (&GoogleAuthFlags{}).StorageOptions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, opts)
}
