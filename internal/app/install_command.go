package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tyemirov/sslfix/internal/certificates/truststore"
	"github.com/tyemirov/sslfix/internal/provisioning"
	"github.com/tyemirov/sslfix/internal/sources"
	"github.com/tyemirov/sslfix/pkg/logging"
)

const (
	logFieldURL             = "url"
	logFieldFingerprint     = "fingerprint"
	logFieldSubject         = "subject"
	logFieldNotAfter        = "not_after"
	logFieldAllowedPrefixes = "allowed_prefixes"

	consoleMessageDownloading = "Downloading -> %s"
	consoleMessageInstalled   = "Installed successfully!"
	consoleMessageError       = "Error: %s"
)

func runInstall(cmd *cobra.Command) error {
	resources, err := getApplicationResources(cmd)
	if err != nil {
		return err
	}
	installErr := provisionCertificates(cmd.Context(), resources)
	if installErr != nil {
		logFailure(resources, installErr)
	}
	waitForKeypress(resources)
	if installErr != nil {
		return reportedError{err: installErr}
	}
	return nil
}

func provisionCertificates(ctx context.Context, resources *applicationResources) error {
	configurationManager := resources.configurationManager
	urls := sanitizeEntries(configurationManager.GetStringSlice(configKeyInstallURLs))
	allowList := sources.NewAllowList(sanitizeEntries(configurationManager.GetStringSlice(configKeyInstallAllowedPrefixes)))
	fetcher := sources.NewFetcher(resources.dependencies.httpClient, allowList)

	store, err := resources.dependencies.storeFactory(buildStoreConfiguration(configurationManager))
	if err != nil {
		return fmt.Errorf("create trust store: %w", err)
	}
	provisioner, err := provisioning.NewProvisioner(fetcher, truststore.NewInstaller(store), &progressReporter{resources: resources})
	if err != nil {
		return err
	}
	if resources.loggingType() == logging.TypeJSON {
		resources.loggingService.Info("installing root certificates", logging.Strings(logFieldURL, urls), logging.Strings(logFieldAllowedPrefixes, allowList.Prefixes()))
	}
	return provisioner.Run(ctx, urls)
}

func buildStoreConfiguration(configurationManager *viper.Viper) truststore.Configuration {
	return truststore.Configuration{
		LinuxAnchorDirectory: strings.TrimSpace(configurationManager.GetString(configKeyInstallStoreDirectory)),
		LinuxRefreshCommand:  strings.Fields(configurationManager.GetString(configKeyInstallRefreshCommand)),
	}
}

// waitForKeypress blocks on a single byte of input for interactive sessions.
func waitForKeypress(resources *applicationResources) {
	if resources.configurationManager.GetBool(configKeyInstallNoWait) {
		return
	}
	deps := resources.dependencies
	if deps.input == nil || deps.interactive == nil || !deps.interactive() {
		return
	}
	buffer := make([]byte, 1)
	_, _ = deps.input.Read(buffer)
}

// sanitizeEntries flattens list values; environment variables arrive as one comma or space separated string.
func sanitizeEntries(entries []string) []string {
	result := make([]string, 0, len(entries))
	for _, entry := range entries {
		for _, part := range strings.Split(entry, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			result = append(result, trimmed)
		}
	}
	return result
}

type progressReporter struct {
	resources *applicationResources
}

func (reporter *progressReporter) Downloading(url string) {
	resources := reporter.resources
	if resources.loggingType() == logging.TypeConsole {
		resources.loggingService.Info(fmt.Sprintf(consoleMessageDownloading, url))
		return
	}
	resources.loggingService.Info("downloading certificate", logging.String(logFieldURL, url))
}

func (reporter *progressReporter) Installed(url string, certificate truststore.InstalledCertificate) {
	resources := reporter.resources
	if resources.loggingType() == logging.TypeConsole {
		resources.loggingService.Info(consoleMessageInstalled)
		return
	}
	resources.loggingService.Info("certificate installed",
		logging.String(logFieldURL, url),
		logging.String(logFieldSubject, certificate.Subject),
		logging.String(logFieldFingerprint, certificate.Fingerprint),
		logging.String(logFieldNotAfter, certificate.Certificate.NotAfter.UTC().Format(time.RFC3339)),
	)
}

func logFailure(resources *applicationResources, err error) {
	if resources.loggingType() == logging.TypeConsole {
		resources.loggingService.Info(fmt.Sprintf(consoleMessageError, err.Error()))
		return
	}
	resources.loggingService.Error("certificate installation failed", err)
}
