// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// SetSessionClock replaces the time source of manager.
func SetSessionClock(manager *SessionManager, now func() time.Time) {
	manager.now = now
}
