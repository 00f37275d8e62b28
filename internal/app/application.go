package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/tyemirov/sslfix/internal/certificates"
	"github.com/tyemirov/sslfix/internal/certificates/truststore"
	"github.com/tyemirov/sslfix/internal/sources"
	"github.com/tyemirov/sslfix/pkg/logging"
)

type contextKey string

const (
	contextKeyApplicationResources contextKey = "application-resources"

	defaultConfigFileName  = "config"
	defaultConfigFileType  = "yaml"
	defaultApplicationName = "sslfix"

	flagNameConfigFile     = "config"
	flagNameURLs           = "url"
	flagNameAllowedPrefix  = "allow-prefix"
	flagNameLoggingType    = "logging-type"
	flagNameNoWait         = "no-wait"
	flagNameStoreDirectory = "store-dir"
	flagNameRefreshCommand = "refresh-command"

	configKeyInstallURLs            = "install.urls"
	configKeyInstallAllowedPrefixes = "install.allowed_prefixes"
	configKeyInstallLoggingType     = "install.logging_type"
	configKeyInstallNoWait          = "install.no_wait"
	configKeyInstallStoreDirectory  = "install.store_directory"
	configKeyInstallRefreshCommand  = "install.refresh_command"

	logMessageFailedInitializeLogger = "failed to initialize logger"
	logMessageResolveUserConfigDir   = "resolve user config directory"
)

// dependencies are the process-external collaborators of a run.
type dependencies struct {
	output        io.Writer
	input         io.Reader
	interactive   func() bool
	httpClient    sources.HTTPClient
	storeFactory  func(configuration truststore.Configuration) (truststore.Store, error)
	userConfigDir func() (string, error)
}

func defaultDependencies() dependencies {
	return dependencies{
		output:      os.Stdout,
		input:       os.Stdin,
		interactive: standardInputIsTerminal,
		httpClient:  nil,
		storeFactory: func(configuration truststore.Configuration) (truststore.Store, error) {
			return truststore.NewSystemStore(certificates.NewExecutableRunner(), certificates.NewOperatingSystemFileSystem(), configuration)
		},
		userConfigDir: os.UserConfigDir,
	}
}

type applicationResources struct {
	configurationManager *viper.Viper
	loggingService       *logging.Service
	defaultConfigDirPath string
	dependencies         dependencies
}

func (resources *applicationResources) updateLogger(loggingType string) error {
	normalizedType, err := logging.NormalizeType(loggingType)
	if err != nil {
		return err
	}
	if resources.loggingService != nil && resources.loggingService.Type() == normalizedType {
		return nil
	}
	service, err := logging.NewServiceWithWriter(normalizedType, resources.dependencies.output)
	if err != nil {
		return err
	}
	if resources.loggingService != nil {
		_ = resources.loggingService.Sync()
	}
	resources.loggingService = service
	return nil
}

func (resources *applicationResources) loggingType() string {
	if resources.loggingService == nil {
		return logging.TypeConsole
	}
	return resources.loggingService.Type()
}

// reportedError marks a failure whose message was already printed to the user.
type reportedError struct {
	err error
}

func (reported reportedError) Error() string {
	return reported.err.Error()
}

func (reported reportedError) Unwrap() error {
	return reported.err
}

// Execute runs the CLI using the provided context and arguments, returning an exit code.
func Execute(ctx context.Context, arguments []string) int {
	return execute(ctx, arguments, defaultDependencies())
}

func execute(ctx context.Context, arguments []string, deps dependencies) int {
	initialService, err := logging.NewServiceWithWriter(logging.TypeConsole, deps.output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", logMessageFailedInitializeLogger, err)
		return 1
	}
	configurationManager := newConfigurationManager()

	userConfigDir, userConfigErr := deps.userConfigDir()
	if userConfigErr != nil {
		initialService.Error(logMessageResolveUserConfigDir, userConfigErr)
		return 1
	}

	resources := &applicationResources{
		configurationManager: configurationManager,
		loggingService:       initialService,
		defaultConfigDirPath: filepath.Join(userConfigDir, defaultApplicationName),
		dependencies:         deps,
	}
	if err := resources.updateLogger(configurationManager.GetString(configKeyInstallLoggingType)); err != nil {
		resources.loggingService = initialService
		resources.loggingService.Error(logMessageFailedInitializeLogger, err)
		return 1
	}
	defer func() {
		if resources.loggingService != nil {
			_ = resources.loggingService.Sync()
		}
	}()

	rootCommand := newRootCommand(resources)
	baseContext := context.WithValue(ctx, contextKeyApplicationResources, resources)
	rootCommand.SetContext(baseContext)
	rootCommand.SetArgs(arguments)
	rootCommand.SetOut(deps.output)
	rootCommand.SetErr(deps.output)

	if executionErr := rootCommand.Execute(); executionErr != nil {
		var reported reportedError
		if !errors.As(executionErr, &reported) {
			logFailure(resources, executionErr)
			waitForKeypress(resources)
		}
		return 1
	}

	return 0
}

func newConfigurationManager() *viper.Viper {
	configurationManager := viper.New()
	configurationManager.SetEnvPrefix(strings.ToUpper(defaultApplicationName))
	configurationManager.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configurationManager.AutomaticEnv()

	configurationManager.SetDefault(configKeyInstallURLs, sources.DefaultCertificateURLs())
	configurationManager.SetDefault(configKeyInstallAllowedPrefixes, sources.DefaultAllowedPrefixes())
	configurationManager.SetDefault(configKeyInstallLoggingType, logging.TypeConsole)
	configurationManager.SetDefault(configKeyInstallNoWait, false)
	configurationManager.SetDefault(configKeyInstallStoreDirectory, "")
	configurationManager.SetDefault(configKeyInstallRefreshCommand, "")
	return configurationManager
}

func standardInputIsTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
