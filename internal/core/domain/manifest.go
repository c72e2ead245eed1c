package domain

import "path"

const (
	ReportsDir   = "reports"
	ReportSuffix = "_report.txt"
	ArchiveName  = "categorized_files.zip"
	ArchiveMime  = "application/zip"
	SummaryEntry = "summary.xlsx"
)

type ManifestEntry struct {
	Path string
	Data []byte
}

// Manifest maps archive paths to contents. Paths are unique; writing a path
// twice keeps the first position and the last contents.
type Manifest struct {
	entries []ManifestEntry
	index   map[string]int
}

func NewManifest() *Manifest {
	return &Manifest{index: make(map[string]int)}
}

func (m *Manifest) Put(p string, data []byte) {
	if i, ok := m.index[p]; ok {
		m.entries[i].Data = data
		return
	}
	m.index[p] = len(m.entries)
	m.entries = append(m.entries, ManifestEntry{Path: p, Data: data})
}

func (m *Manifest) Get(p string) ([]byte, bool) {
	i, ok := m.index[p]
	if !ok {
		return nil, false
	}
	return m.entries[i].Data, true
}

func (m *Manifest) Entries() []ManifestEntry {
	out := make([]ManifestEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *Manifest) Len() int { return len(m.entries) }

func (m *Manifest) Paths() []string {
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Path)
	}
	return out
}

// FilePath is the archive path of a categorized file.
func FilePath(bucket Bucket, filename string) string {
	return path.Join(string(bucket), archiveBaseName(filename))
}

// ReportPath is the archive path of a file's report.
func ReportPath(filename string) string {
	return path.Join(ReportsDir, archiveBaseName(filename)+ReportSuffix)
}

// archiveBaseName strips any directory components a client may have sent so
// every entry stays inside its bucket folder.
func archiveBaseName(filename string) string {
	base := path.Base(filepathToSlash(filename))
	if base == "." || base == "/" || base == ".." || base == "" {
		return "file"
	}
	return base
}

func filepathToSlash(name string) string {
	out := []byte(name)
	for i, c := range out {
		if c == '\\' {
			out[i] = '/'
		}
	}
	return string(out)
}
