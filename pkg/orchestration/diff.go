// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestration

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// RevisionDiff counts the words a redraft changed.
type RevisionDiff struct {
	Inserted int
	Deleted  int
}

// Summary renders the diff for a chat reply.
func (d RevisionDiff) Summary() string {
	if d.Inserted == 0 && d.Deleted == 0 {
		return "no wording changes"
	}
	return fmt.Sprintf("+%d/-%d words", d.Inserted, d.Deleted)
}

// diffRevision compares two drafts of a section word by word.
func diffRevision(previous, current string) RevisionDiff {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	diffs := dmp.DiffMain(previous, current, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var d RevisionDiff
	for _, diff := range diffs {
		words := len(strings.Fields(diff.Text))
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			d.Inserted += words
		case diffmatchpatch.DiffDelete:
			d.Deleted += words
		}
	}
	return d
}
