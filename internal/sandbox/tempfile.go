package sandbox

import (
	"os"
)

func execTempFile() (string, error) {
	f, err := os.CreateTemp("", "wayfarer-sbx-*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	f.Close()
	return name, nil
}

func removeTemp(path string) { _ = os.Remove(path) }

func readTemp(path string) ([]byte, error) { return os.ReadFile(path) }

func writeTemp(path string, data []byte) error { return os.WriteFile(path, data, 0o600) }
