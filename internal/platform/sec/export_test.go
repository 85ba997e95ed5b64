// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "time"

// SetClock replaces the time source of signer.
func SetClock(signer *StateSigner, now func() time.Time) {
	signer.now = now
}
