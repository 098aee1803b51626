package builder

import (
	"github.com/go-git/go-git/v6"
)

const shortHashLen = 7

// headRevision returns the abbreviated HEAD commit of the git checkout containing dir
func headRevision(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if err != nil {
		return "", err
	}
	hash := ref.Hash().String()
	return hash[:min(shortHashLen, len(hash))], nil
}

// revisionDefine renders the -D flag carrying the revision as a C string literal
func revisionDefine(name, rev string) string {
	return "-D" + name + `=\"` + rev + `\"`
}
