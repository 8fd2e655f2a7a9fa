package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads the first .env file found in the working directory or one
// of its two parents and returns its absolute path. Variables already set in
// the environment win. ok is false when no file was loaded, which is the
// normal case in containers.
func LoadDotEnv() (path string, ok bool) {
	return loadDotEnv(dotEnvCandidates())
}

func dotEnvCandidates() []string {
	paths := []string{".env", filepath.Join("..", "..", ".env")}

	if workDir, err := os.Getwd(); err == nil {
		parentDir := filepath.Dir(workDir)
		paths = append(paths,
			filepath.Join(workDir, ".env"),
			filepath.Join(parentDir, ".env"),
			filepath.Join(filepath.Dir(parentDir), ".env"),
		)
	}

	return paths
}

func loadDotEnv(paths []string) (string, bool) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		return abs, true
	}
	return "", false
}
