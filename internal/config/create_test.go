package config

import (
	"errors"
	"os"
	"testing"

	"github.com/matryer/is"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/tauraamui/idlesqueeze/pkg/configdef"
)

type CreateConfigTestSuite struct {
	suite.Suite
	is                   *is.I
	configCreateResolver configdef.CreateResolver
	fs                   afero.Fs
	fsRef                afero.Fs
}

func (suite *CreateConfigTestSuite) SetupSuite() {
	suite.is = is.New(suite.T())
	suite.fs = afero.NewMemMapFs()
	suite.configCreateResolver = DefaultCreateResolver()

	// use in memory FS in implementation for tests
	suite.fsRef = fs
	fs = suite.fs
	os.Setenv(configPathEnv, testConfigPath)
}

func (suite *CreateConfigTestSuite) TearDownSuite() {
	fs = suite.fsRef
	os.Unsetenv(configPathEnv)
}

func (suite *CreateConfigTestSuite) TearDownTest() {
	suite.is.NoErr(suite.fs.RemoveAll("/"))
}

func (suite *CreateConfigTestSuite) TestConfigCreate() {
	require.NoError(suite.T(), suite.configCreateResolver.Create())
	loadedConfig, err := suite.configCreateResolver.Resolve()

	assert.NoError(suite.T(), err)
	want := configdef.Default()
	resolveRelativeDirs("/testroot/tacusci/idlesqueeze", &want.Server)
	assert.EqualValues(suite.T(), want, loadedConfig)
}

func (suite *CreateConfigTestSuite) TestConfigCreateFailsDueToAlreadyExisting() {
	suite.is.NoErr(suite.configCreateResolver.Create())
	err := suite.configCreateResolver.Create()
	suite.is.Equal(err.Error(), "config file already exists")
	suite.is.True(errors.Is(err, configdef.ErrConfigAlreadyExists))
}

func (suite *CreateConfigTestSuite) TestConfigDestroyRemovesFile() {
	suite.is.NoErr(suite.configCreateResolver.Create())
	suite.is.NoErr(DefaultDestroyer().Destroy())

	exists, err := afero.Exists(suite.fs, testConfigPath)
	suite.is.NoErr(err)
	suite.is.True(!exists)

	// destroying twice is not an error
	suite.is.NoErr(DefaultDestroyer().Destroy())
}

func TestCreateConfigTestSuite(t *testing.T) {
	suite.Run(t, &CreateConfigTestSuite{})
}
