package clone

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
)

type ConfigFile struct {
	Name   string
	Reader io.Reader
	Length int
}

// ConfigFiles locates config files under Root in Files, which may be an embed.FS or os.DirFS.
type ConfigFiles struct {
	Root  string
	Files fs.FS
}

func (cf ConfigFiles) MustFindRootConfigFile(filename string) (ConfigFile, error) {
	var result ConfigFile
	name := path.Join(cf.Root, filename)
	b, err := fs.ReadFile(cf.Files, name)
	if err == nil {
		result.Name = name
		result.Reader = bytes.NewReader(b)
		result.Length = len(b)
	}
	return result, err
}

func (cf ConfigFiles) MustFindRequiredConfigFile() (ConfigFile, error) {
	return cf.MustFindRootConfigFile("required.yaml")
}

// FindDefaultsConfigFile returns an empty ConfigFile when defaults.yaml does not exist.
func (cf ConfigFiles) FindDefaultsConfigFile() (ConfigFile, error) {
	result, err := cf.MustFindRootConfigFile("defaults.yaml")
	if errors.Is(err, fs.ErrNotExist) {
		return ConfigFile{}, nil
	}
	return result, err
}

// MustFindDeploymentConfigFile returns deployments/<deployment>.yaml.
func (cf ConfigFiles) MustFindDeploymentConfigFile(deployment string) (ConfigFile, error) {
	if !fs.ValidPath(deployment) || path.Base(deployment) != deployment {
		return ConfigFile{}, fmt.Errorf("invalid deployment name: %s", deployment)
	}
	return cf.MustFindRootConfigFile(path.Join("deployments", deployment+".yaml"))
}
