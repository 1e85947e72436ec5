package memory

import (
	"testing"

	"go.uber.org/goleak"

	"github.com/userstore/userstore/pkg/storage/test"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMemoryDatastore(t *testing.T) {
	ds := New()
	defer ds.Close()

	test.RunAllTests(t, ds)
}
