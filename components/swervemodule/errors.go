package swervemodule

import "github.com/pkg/errors"

// ErrCalibrationMissing is wrapped by errors from modules whose steering zero is not established.
var ErrCalibrationMissing = errors.New("steering calibration missing")

// NewCalibrationMissingError returns an error for a module with no absolute angle reference.
func NewCalibrationMissingError(moduleName string) error {
	return errors.Wrapf(ErrCalibrationMissing, "module %s", moduleName)
}

// NewAbsoluteResetError returns an error for a failed absolute reset.
func NewAbsoluteResetError(moduleName string, cause error) error {
	return errors.Wrapf(cause, "module %s could not reset to absolute", moduleName)
}
