// Package model contains the domain types shared by the collector,
// the metrics reader, and the analysis layer.
package model

import "strings"

// Repository describes one studied GitHub repository and the category it
// belongs to. Descriptors are static: the registry is defined at startup
// and never mutated.
type Repository struct {
	FullName       string // "owner/name" as used by the GitHub API.
	DisplayName    string
	IndustryBacked bool
}

// Slug returns a filesystem-safe identifier for the repository, used to
// derive the per-repository metrics file name.
func (r Repository) Slug() string {
	return strings.ReplaceAll(r.FullName, "/", "_")
}

// Registry returns the static list of studied repositories. Six are
// maintained primarily by a company, six primarily by their community.
func Registry() []Repository {
	return []Repository{
		{FullName: "microsoft/vscode", DisplayName: "VSCode", IndustryBacked: true},
		{FullName: "facebook/react", DisplayName: "React", IndustryBacked: true},
		{FullName: "kubernetes/kubernetes", DisplayName: "Kubernetes", IndustryBacked: true},
		{FullName: "angular/angular", DisplayName: "Angular", IndustryBacked: true},
		{FullName: "pytorch/pytorch", DisplayName: "PyTorch", IndustryBacked: true},
		{FullName: "ansible/ansible", DisplayName: "Ansible", IndustryBacked: true},

		{FullName: "godotengine/godot", DisplayName: "Godot", IndustryBacked: false},
		{FullName: "obsproject/obs-studio", DisplayName: "OBS-Studio", IndustryBacked: false},
		{FullName: "openstreetmap/openstreetmap-website", DisplayName: "OpenStreetMap", IndustryBacked: false},
		{FullName: "jenkinsci/jenkins", DisplayName: "Jenkins", IndustryBacked: false},
		{FullName: "Homebrew/brew", DisplayName: "Homebrew", IndustryBacked: false},
		{FullName: "neovim/neovim", DisplayName: "neovim", IndustryBacked: false},
	}
}
