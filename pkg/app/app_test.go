package app

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOptions struct {
	Addr     string `mapstructure:"addr"`
	complete bool
	invalid  bool
}

func (o *testOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Addr, "addr", ":8080", "Listen address")
}

func (o *testOptions) Complete() error {
	o.complete = true
	return nil
}

func (o *testOptions) Validate() error {
	if o.invalid {
		return assert.AnError
	}
	return nil
}

func TestAppRunsRunFunc(t *testing.T) {
	opts := &testOptions{}
	ran := false

	a := NewApp(
		WithName("testapp"),
		WithOptions(opts),
		WithNoConfig(),
		WithNoVersion(),
		WithSilence(),
		WithRunFunc(func() error {
			ran = true
			return nil
		}),
	)
	a.Command().SetArgs([]string{})

	require.NoError(t, a.Command().Execute())
	assert.True(t, ran)
	assert.True(t, opts.complete)
}

func TestAppFlagOverridesDefault(t *testing.T) {
	opts := &testOptions{}

	a := NewApp(
		WithName("testapp"),
		WithOptions(opts),
		WithNoConfig(),
		WithNoVersion(),
		WithSilence(),
		WithRunFunc(func() error { return nil }),
	)
	a.Command().SetArgs([]string{"--addr", ":9999"})

	require.NoError(t, a.Command().Execute())
	assert.Equal(t, ":9999", opts.Addr)
}

func TestAppValidateFailureStopsRun(t *testing.T) {
	opts := &testOptions{invalid: true}
	ran := false

	a := NewApp(
		WithName("testapp"),
		WithOptions(opts),
		WithNoConfig(),
		WithNoVersion(),
		WithSilence(),
		WithRunFunc(func() error {
			ran = true
			return nil
		}),
	)
	a.Command().SetArgs([]string{})

	require.Error(t, a.Command().Execute())
	assert.False(t, ran)
}
