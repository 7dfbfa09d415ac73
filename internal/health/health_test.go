/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package health

import (
	"net/http/httptest"
	"testing"
)

type fixedChecker bool

func (f fixedChecker) Healthy() bool { return bool(f) }

func TestHealthzAlwaysReportsAlive(t *testing.T) {
	handler := Handler(fixedChecker(false))
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("expected /healthz to always return 200, got %d", rec.Code)
	}
}

func TestReadyzReflectsCheckerHealth(t *testing.T) {
	handler := Handler(fixedChecker(true))
	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("expected /readyz to return 200 when healthy, got %d", rec.Code)
	}

	handler = Handler(fixedChecker(false))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != 503 {
		t.Fatalf("expected /readyz to return 503 when not healthy, got %d", rec.Code)
	}
}
