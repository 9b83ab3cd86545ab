package config

import (
	"github.com/hashicorp/hcl/v2/hclsimple"
)

// hclDocument is the HCL shape of a configuration file:
//
//	links = ["config/git/gitconfig:~/.gitconfig"]
//	steps = ["./scripts/brew.sh"]
//
//	settings {
//	  shell = "zsh"
//	}
type hclDocument struct {
	Init     *[]string    `hcl:"init,optional"`
	Links    *[]string    `hcl:"links,optional"`
	Steps    *[]string    `hcl:"steps,optional"`
	Settings *hclSettings `hcl:"settings,block"`
}

type hclSettings struct {
	Shell       *string `hcl:"shell,optional"`
	StepTimeout *string `hcl:"step_timeout,optional"`
	BackupDir   *string `hcl:"backup_dir,optional"`
	Root        *string `hcl:"root,optional"`
}

// parseHCL decodes an HCL document into the same nested map the TOML and
// YAML parsers produce, containing only the keys the document sets.
func parseHCL(filename string, data []byte) (map[string]interface{}, error) {
	var doc hclDocument
	if err := hclsimple.Decode(filename, data, nil, &doc); err != nil {
		return nil, err
	}

	out := make(map[string]interface{})
	putList(out, "init", doc.Init)
	putList(out, "links", doc.Links)
	putList(out, "steps", doc.Steps)

	if doc.Settings != nil {
		settings := make(map[string]interface{})
		putString(settings, "shell", doc.Settings.Shell)
		putString(settings, "step_timeout", doc.Settings.StepTimeout)
		putString(settings, "backup_dir", doc.Settings.BackupDir)
		putString(settings, "root", doc.Settings.Root)
		out["settings"] = settings
	}

	return out, nil
}

func putList(m map[string]interface{}, key string, list *[]string) {
	if list == nil {
		return
	}
	values := make([]interface{}, len(*list))
	for i, v := range *list {
		values[i] = v
	}
	m[key] = values
}

func putString(m map[string]interface{}, key string, value *string) {
	if value != nil {
		m[key] = *value
	}
}
