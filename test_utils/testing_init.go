package testing_init

import (
	"os"
	"path"
	"runtime"
	"testing"

	"github.com/port-labs/port-sync-engine/pkg/config"
)

func init() {
	_, filename, _, _ := runtime.Caller(0)
	dir := path.Join(path.Dir(filename), "..")
	err := os.Chdir(dir)
	if err != nil {
		panic(err)
	}
	testing.Init()
	config.Init()
}
