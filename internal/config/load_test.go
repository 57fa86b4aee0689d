package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/tauraamui/idlesqueeze/pkg/configdef"
)

const testConfigPath = "/testroot/tacusci/idlesqueeze/config.json"

type LoadConfigTestSuite struct {
	suite.Suite
	configResolver configdef.Resolver
	fs             afero.Fs
	fsRef          afero.Fs
	path           string
	configFile     afero.File
}

func (suite *LoadConfigTestSuite) SetupSuite() {
	suite.fs = afero.NewMemMapFs()
	suite.configResolver = DefaultResolver()

	// use in memory FS in implementation for tests
	suite.fsRef = fs
	fs = suite.fs
	os.Setenv(configPathEnv, testConfigPath)
}

func (suite *LoadConfigTestSuite) TearDownSuite() {
	fs = suite.fsRef
	os.Unsetenv(configPathEnv)
}

func (suite *LoadConfigTestSuite) SetupTest() {
	path, err := resolveConfigPath()
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.fs.MkdirAll(filepath.Dir(path), os.ModeDir|os.ModePerm))
	suite.path = path

	configFile, err := suite.fs.Create(path)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), configFile)

	suite.configFile = configFile

	suite.overwriteTestConfig(
		`{
			"debug": true,
			"secret": "DJIF3fje943fi4jefgo0",
			"engine": {"area_threshold": 1800, "idle_criteria": 8}
		}`,
	)
}

func (suite *LoadConfigTestSuite) overwriteTestConfig(config string) {
	require.NoError(suite.T(), suite.configFile.Truncate(0))
	_, err := suite.configFile.Seek(0, 0)
	require.NoError(suite.T(), err)
	_, err = suite.configFile.WriteString(config)
	assert.NoError(suite.T(), err)
}

func (suite *LoadConfigTestSuite) TearDownTest() {
	require.NoError(suite.T(), suite.configFile.Close())
	suite.fs.Remove(suite.path)
}

func (suite *LoadConfigTestSuite) TestLoadConfig() {
	config, err := suite.configResolver.Resolve()
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), true, config.Debug)
	assert.Equal(suite.T(), "DJIF3fje943fi4jefgo0", config.Secret)
	assert.Equal(suite.T(), 1800.0, config.Engine.AreaThreshold)
	assert.Equal(suite.T(), 8, config.Engine.IdleCriteria)
	assert.Equal(suite.T(), "empty", config.Engine.InsufficientFrames)
	assert.Equal(suite.T(), configdef.Default().Engine.ScaleBands, config.Engine.ScaleBands)
}

func (suite *LoadConfigTestSuite) TestLoadConfigAnchorsRelativeDirsBesideConfigFile() {
	suite.overwriteTestConfig(`{"server": {"upload_dir": "in", "processed_dir": "/srv/out"}}`)

	config, err := suite.configResolver.Resolve()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "/testroot/tacusci/idlesqueeze/in", config.Server.UploadDir)
	assert.Equal(suite.T(), "/srv/out", config.Server.ProcessedDir)
	assert.Equal(suite.T(), "/testroot/tacusci/idlesqueeze/work", config.Server.WorkDir)
}

func (suite *LoadConfigTestSuite) TestConfigLoadFailsOnInvalidJSON() {
	suite.overwriteTestConfig(`{"debug" true,}`)

	config, err := suite.configResolver.Resolve()
	require.Error(suite.T(), err)
	require.Empty(suite.T(), config)
	assert.Contains(suite.T(), err.Error(), "parsing configuration error")
}

func (suite *LoadConfigTestSuite) TestConfigLoadFailsValidationOnMalformedExtension() {
	suite.overwriteTestConfig(`{"server": {"allowed_extensions": ["MP4"]}}`)

	config, err := suite.configResolver.Resolve()
	require.Error(suite.T(), err)
	require.Empty(suite.T(), config)
	assert.EqualError(suite.T(), err, `validation failed: allowed extension "MP4" must be bare lower case alphanumerics`)
}

func TestLoadConfigTestSuite(t *testing.T) {
	suite.Run(t, &LoadConfigTestSuite{})
}

func TestResolveConfigPathFromUserConfigDir(t *testing.T) {
	os.Unsetenv(configPathEnv)
	userConfigDirRef := userConfigDir
	defer func() { userConfigDir = userConfigDirRef }()
	userConfigDir = func() (string, error) { return "/home/test/.config", nil }

	path, err := resolveConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "/home/test/.config/tacusci/idlesqueeze/config.json", path)
}
