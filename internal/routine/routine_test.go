// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package routine

import "testing"

func TestID_StablePerGoroutine(t *testing.T) {
	id := ID()
	if id == 0 || ID() != id {
		t.Fatalf("id=%d", id)
	}
	other := make(chan uint64)
	go func() { other <- ID() }()
	if o := <-other; o == 0 || o == id {
		t.Fatalf("other=%d self=%d", o, id)
	}
}
