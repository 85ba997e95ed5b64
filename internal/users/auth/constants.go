// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "github.com/taibuivan/secrets/internal/platform/sec"

// # Credential Constraints

const (
	// UsernameMinLength and UsernameMaxLength bound the normalized username.
	UsernameMinLength = 3
	UsernameMaxLength = 64

	// PasswordMaxBytes is the bcrypt input limit.
	PasswordMaxBytes = sec.MaxPasswordBytes
)

// # Providers

const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)
