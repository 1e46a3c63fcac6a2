package core

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"os"

	"github.com/giantswarm/procpool/internal/fileutil"
)

// KeyLength is the number of hex characters kept from the SHA256 digest.
// 64 bits make accidental collisions between the definitions of one test
// run very unlikely, but nothing detects one: two colliding definitions
// would share a cached instance.
const KeyLength = 16

// fingerprint hashes the identity fields of r. Options are deliberately left
// out so that changing a timeout refreshes a cached instance instead of
// creating a new one.
//
// File arguments contribute the file content when the file can be read and
// fall back to the literal argument otherwise; key derivation never fails.
// A directory contributes every regular file below it.
// Relative file arguments are resolved against projectDir.
func fingerprint(projectDir string, r *Recipe) string {
	h := sha256.New()

	writeField(h, "g", r.group)
	writeField(h, "p", r.path)
	writeField(h, "t", r.typ.TypeName())
	for _, ext := range r.extensions {
		writeField(h, "e", ext.Name())
	}
	writeField(h, "w", r.workingDirectory)
	for _, arg := range r.arguments {
		if arg.File {
			err := writeFileContent(h, fileutil.Resolve(projectDir, arg.Value))
			if err == nil {
				continue
			}
			Logger().Debug("file argument unreadable, hashing its path", "path", arg.Value, "error", err)
		}
		writeField(h, "a", arg.Value)
	}

	return hex.EncodeToString(h.Sum(nil))[:KeyLength]
}

func writeFileContent(h hash.Hash, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		writeField(h, "c", string(content))
		return nil
	}

	files, err := fileutil.ReadTree(path)
	if err != nil {
		return err
	}
	// Field content is written only after the walk succeeded, so a failed
	// walk leaves the digest clean for the text fallback.
	writeField(h, "d", "")
	for _, f := range files {
		writeField(h, "n", f.RelPath)
		writeField(h, "c", string(f.Content))
	}
	return nil
}

// writeField writes a tagged, NUL-terminated field so that adjacent fields
// and content-versus-text arguments cannot run into each other.
func writeField(h hash.Hash, tag, value string) {
	h.Write([]byte(tag)) // hash.Hash.Write never returns an error
	h.Write([]byte{0})
	h.Write([]byte(value))
	h.Write([]byte{0})
}
