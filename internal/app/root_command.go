package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func newRootCommand(resources *applicationResources) *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           defaultApplicationName,
		Short:         "Download the Let's Encrypt ISRG roots and install them into the machine trust store",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfigurationFile(cmd); err != nil {
				return err
			}
			return applyLoggingType(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd)
		},
	}

	installFlags := pflag.NewFlagSet("install", pflag.ContinueOnError)
	configureInstallFlags(installFlags, resources.configurationManager)
	rootCommand.Flags().AddFlagSet(installFlags)

	rootCommand.PersistentFlags().String(flagNameConfigFile, "", "Path to configuration file")

	return rootCommand
}

func configureInstallFlags(flagSet *pflag.FlagSet, configurationManager *viper.Viper) {
	flagSet.StringSlice(flagNameURLs, configurationManager.GetStringSlice(configKeyInstallURLs), "Certificate URLs to install, in order")
	flagSet.StringSlice(flagNameAllowedPrefix, configurationManager.GetStringSlice(configKeyInstallAllowedPrefixes), "URL prefixes certificates may be downloaded from")
	flagSet.String(flagNameLoggingType, configurationManager.GetString(configKeyInstallLoggingType), "Logging type (CONSOLE or JSON)")
	flagSet.Bool(flagNameNoWait, configurationManager.GetBool(configKeyInstallNoWait), "Exit without waiting for a keypress")
	flagSet.String(flagNameStoreDirectory, configurationManager.GetString(configKeyInstallStoreDirectory), "Linux anchor directory (detected when empty)")
	flagSet.String(flagNameRefreshCommand, configurationManager.GetString(configKeyInstallRefreshCommand), "Linux command that rebuilds the trust bundle (detected when empty)")
	_ = configurationManager.BindPFlag(configKeyInstallURLs, flagSet.Lookup(flagNameURLs))
	_ = configurationManager.BindPFlag(configKeyInstallAllowedPrefixes, flagSet.Lookup(flagNameAllowedPrefix))
	_ = configurationManager.BindPFlag(configKeyInstallLoggingType, flagSet.Lookup(flagNameLoggingType))
	_ = configurationManager.BindPFlag(configKeyInstallNoWait, flagSet.Lookup(flagNameNoWait))
	_ = configurationManager.BindPFlag(configKeyInstallStoreDirectory, flagSet.Lookup(flagNameStoreDirectory))
	_ = configurationManager.BindPFlag(configKeyInstallRefreshCommand, flagSet.Lookup(flagNameRefreshCommand))
}

func loadConfigurationFile(cmd *cobra.Command) error {
	resources, err := getApplicationResources(cmd)
	if err != nil {
		return err
	}
	configurationManager := resources.configurationManager
	configFilePath, flagErr := cmd.Flags().GetString(flagNameConfigFile)
	if flagErr != nil {
		return fmt.Errorf("read config flag: %w", flagErr)
	}
	if configFilePath != "" {
		configurationManager.SetConfigFile(configFilePath)
	} else {
		configurationManager.AddConfigPath(resources.defaultConfigDirPath)
		configurationManager.SetConfigName(defaultConfigFileName)
		configurationManager.SetConfigType(defaultConfigFileType)
	}
	if readErr := configurationManager.ReadInConfig(); readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return fmt.Errorf("read configuration: %w", readErr)
		}
	}
	return nil
}

func applyLoggingType(cmd *cobra.Command) error {
	resources, err := getApplicationResources(cmd)
	if err != nil {
		return err
	}
	return resources.updateLogger(resources.configurationManager.GetString(configKeyInstallLoggingType))
}

func getApplicationResources(cmd *cobra.Command) (*applicationResources, error) {
	resourceValue := cmd.Context().Value(contextKeyApplicationResources)
	if resourceValue == nil {
		return nil, errors.New("application resources not configured")
	}
	resources, ok := resourceValue.(*applicationResources)
	if !ok {
		return nil, errors.New("invalid application resources type")
	}
	return resources, nil
}
