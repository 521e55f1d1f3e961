// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import "testing"

func TestBranchesClassification(t *testing.T) {
	branching := []Class{Jump, Brz, Brnz}
	for _, c := range branching {
		if !c.Branches() {
			t.Errorf("%v.Branches() = false, want true", c)
		}
	}
	for _, c := range []Class{Add, Call, Funcall, Apply} {
		if c.Branches() {
			t.Errorf("%v.Branches() = true, want false", c)
		}
	}
}

func TestClosurePushClassification(t *testing.T) {
	if !PushClosure.IsClosurePush() || !PushVaClosure.IsClosurePush() {
		t.Errorf("expected PushClosure and PushVaClosure to report IsClosurePush")
	}
	if Jump.IsClosurePush() {
		t.Errorf("Jump.IsClosurePush() = true, want false")
	}
}

func TestNewLabel(t *testing.T) {
	l := NewLabel(7)
	if l.Class != Label || l.LabelID != 7 {
		t.Errorf("NewLabel(7) = %+v, want Class=Label LabelID=7", l)
	}
}

func TestClassStringKnown(t *testing.T) {
	if Add.String() != "add" {
		t.Errorf("Add.String() = %q, want %q", Add.String(), "add")
	}
}
