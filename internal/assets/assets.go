// Package assets holds the embedded build recipe and configuration template
// for the sandbox image.
package assets

import (
	"embed"
)

//go:embed templates/claude-code-ubuntu.dockerfile templates/claude.template.json
var templatesFS embed.FS

// DockerfileName is the file name the recipe is staged under in the build context.
const DockerfileName = "claude-code-ubuntu.dockerfile"

// Dockerfile returns the embedded image build recipe.
func Dockerfile() []byte {
	data, err := templatesFS.ReadFile("templates/claude-code-ubuntu.dockerfile")
	if err != nil {
		// Programming error -- the recipe is embedded and tested at init time.
		panic(err)
	}
	return data
}

// ConfigTemplate returns the embedded claude.json template.
func ConfigTemplate() []byte {
	data, err := templatesFS.ReadFile("templates/claude.template.json")
	if err != nil {
		panic(err)
	}
	return data
}
