package history

import (
	"strings"

	"github.com/Sumatoshi-tech/testevo/pkg/classify"
	"github.com/Sumatoshi-tech/testevo/pkg/gitlib"
)

// testDirName is the directory name that marks a subtree as test code.
const testDirName = "tests"

type roleCounts struct {
	prod int
	test int
}

func (rc *roleCounts) add(role classify.Role) {
	switch role {
	case classify.RoleProduction:
		rc.prod++
	case classify.RoleTest:
		rc.test++
	case classify.RoleIgnored:
	}
}

// treeKey identifies a memoized subtree count. Classification inside a
// subtree depends only on the tree contents and on whether some ancestor
// directory is the tests segment, so the pair is a complete cache key.
type treeKey struct {
	hash    gitlib.Hash
	inTests bool
}

// treeFileCounts classifies every blob in the commit's tree.
func (s *Scanner) treeFileCounts(commit *gitlib.Commit) (prod, test int, err error) {
	tree, treeErr := commit.Tree()
	if treeErr != nil {
		return 0, 0, treeErr
	}
	defer tree.Free()

	counts := s.countTree(tree, false)

	return counts.prod, counts.test, nil
}

// countTree tallies production and test blobs under the tree, memoized so
// commits sharing unchanged subtrees reuse earlier traversals.
func (s *Scanner) countTree(tree *gitlib.Tree, inTests bool) roleCounts {
	key := treeKey{hash: tree.Hash(), inTests: inTests}

	if cached, ok := s.treeCounts.Load(key); ok {
		if counts, isCounts := cached.(roleCounts); isCounts {
			return counts
		}
	}

	var counts roleCounts

	for i := range tree.EntryCount() {
		entry := tree.EntryByIndex(i)
		if entry == nil {
			continue
		}

		switch {
		case entry.IsBlob():
			counts.add(blobRole(entry.Name(), inTests))
		case entry.IsTree():
			sub, lookupErr := s.repo.LookupTree(entry.Hash())
			if lookupErr != nil {
				continue
			}

			childInTests := inTests || strings.EqualFold(entry.Name(), testDirName)
			subCounts := s.countTree(sub, childInTests)
			sub.Free()

			counts.prod += subCounts.prod
			counts.test += subCounts.test
		}
	}

	s.treeCounts.Store(key, counts)

	return counts
}

// blobRole classifies one blob. Under a tests ancestor everything is a
// test file; otherwise the classification is name-local.
func blobRole(name string, inTests bool) classify.Role {
	if inTests {
		return classify.RoleTest
	}

	return classify.PathRole(name)
}
