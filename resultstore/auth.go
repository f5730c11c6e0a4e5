// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resultstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// GoogleAuthFlags selects how the GCS store authenticates. With no
// flags set, application default credentials are used.
type GoogleAuthFlags struct {
	// ServiceAccountCredentialFile is a credential file as
	// described by https://cloud.google.com/docs/authentication/production.
	ServiceAccountCredentialFile string

	// OAuthClientCredentialFile and TokenFile together configure
	// end-user credentials: the OAuth client definition and a
	// previously obtained token.
	OAuthClientCredentialFile string
	TokenFile                 string
}

func (f *GoogleAuthFlags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.ServiceAccountCredentialFile, "google-service-account-credential-file", f.ServiceAccountCredentialFile, "location of a Google service account credential file")
	fs.StringVar(&f.OAuthClientCredentialFile, "google-oauth-credential-file", f.OAuthClientCredentialFile, "location of a Google OAuth client credential file; requires --google-oauth-token-file")
	fs.StringVar(&f.TokenFile, "google-oauth-token-file", f.TokenFile, "location of a previously obtained OAuth token for --google-oauth-credential-file")
}

func (f *GoogleAuthFlags) Validate() error {
	if f.OAuthClientCredentialFile != "" && f.TokenFile == "" {
		return fmt.Errorf("--google-oauth-credential-file requires --google-oauth-token-file")
	}
	return nil
}

// StorageOptions returns the client options implied by the flags.
func (f *GoogleAuthFlags) StorageOptions(ctx context.Context) ([]option.ClientOption, error) {
	if f.ServiceAccountCredentialFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(f.ServiceAccountCredentialFile)}, nil
	}
	if f.OAuthClientCredentialFile == "" {
		// Fall back to application default credentials.
		return nil, nil
	}

	b, err := os.ReadFile(f.OAuthClientCredentialFile)
	if err != nil {
		return nil, err
	}
	config, err := google.ConfigFromJSON(b, "https://www.googleapis.com/auth/devstorage.read_only")
	if err != nil {
		return nil, fmt.Errorf("parsing OAuth client credentials: %w", err)
	}
	tb, err := os.ReadFile(f.TokenFile)
	if err != nil {
		return nil, err
	}
	token := &oauth2.Token{}
	if err := json.Unmarshal(tb, token); err != nil {
		return nil, fmt.Errorf("parsing OAuth token: %w", err)
	}
	return []option.ClientOption{option.WithTokenSource(config.TokenSource(ctx, token))}, nil
}
