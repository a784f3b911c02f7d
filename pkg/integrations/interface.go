package integrations

// Archiver packages a finished pack folder into a single distributable file.
type Archiver interface {
	// Archive writes every regular file below srcDir into destPath. Entry
	// names are relative to relativeTo and returned count is the number of
	// files written.
	Archive(srcDir, destPath, relativeTo string) (int, error)
}
