package analyze

import (
	"github.com/Sumatoshi-tech/testevo/pkg/classify"
	"github.com/Sumatoshi-tech/testevo/pkg/pysrc"
)

// SourceFile pairs a repository path with its classified role and parsed
// syntax view.
type SourceFile struct {
	Path   string
	Role   classify.Role
	Parsed *pysrc.File
}

// Snapshot is the parsed view of one repository checkout. It holds every
// source file that parsed successfully; unparseable files are dropped before
// the snapshot is built.
type Snapshot struct {
	Files []SourceFile
}

// TestFiles returns the snapshot's test files.
func (s *Snapshot) TestFiles() []SourceFile {
	return s.filesWithRole(classify.RoleTest)
}

// ProductionFiles returns the snapshot's production files.
func (s *Snapshot) ProductionFiles() []SourceFile {
	return s.filesWithRole(classify.RoleProduction)
}

func (s *Snapshot) filesWithRole(role classify.Role) []SourceFile {
	var out []SourceFile

	for _, f := range s.Files {
		if f.Role == role {
			out = append(out, f)
		}
	}

	return out
}
