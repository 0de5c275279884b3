package helpers

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/lamassuiot/licensekey/v3/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestConfigureLoggerBelowDebug(t *testing.T) {
	logger := logrus.NewEntry(logrus.New())
	logger.Logger.Level = logrus.InfoLevel

	result := ConfigureLogger(InitContext(), logger)
	assert.Same(t, logger, result)
}

func TestConfigureLoggerWithOperationID(t *testing.T) {
	logger := logrus.NewEntry(logrus.New())
	logger.Logger.Level = logrus.TraceLevel

	ctx := context.WithValue(context.Background(), CtxOperationID, "12345")
	result := ConfigureLogger(ctx, logger)
	assert.Equal(t, "12345", result.Data["op-id"])

	result = ConfigureLogger(context.Background(), logger)
	opID, ok := result.Data["op-id"].(string)
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(opID, "unset."))
}

func TestInitContext(t *testing.T) {
	opID, ok := InitContext().Value(CtxOperationID).(string)
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(opID, "internal."))
}

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger(config.Debug, "License", "Codec")
	assert.Equal(t, logrus.DebugLevel, logger.Logger.GetLevel())
	assert.Equal(t, "License", logger.Data["service"])
	assert.Equal(t, "Codec", logger.Data["subsystem"])

	logger = SetupLogger(config.None, "License", "Codec")
	assert.Equal(t, io.Discard, logger.Logger.Out)

	logger = SetupLogger("loud", "License", "Codec")
	assert.Equal(t, logrus.GetLevel(), logger.Logger.GetLevel())
}

func TestGetCallerFunctionName(t *testing.T) {
	assert.Equal(t, "TestGetCallerFunctionName", GetCallerFunctionName())
}
