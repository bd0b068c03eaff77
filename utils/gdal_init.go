package utils

import (
	"os"

	"github.com/airbusgeo/godal"
	log "github.com/sirupsen/logrus"
)

func InitGdal() {
	setDefaultEnv("GDAL_NETCDF_VERIFY_DIMS", "NO")
	setDefaultEnv("GDAL_PAM_ENABLED", "NO")
	setDefaultEnv("GDAL_DISABLE_READDIR_ON_OPEN", "EMPTY_DIR")
	setDefaultEnv("GDAL_MAX_DATASET_POOL_SIZE", "10")
	setDefaultEnv("CPL_LOG_ERRORS", "ON")

	registerGDALDrivers()
}

func setDefaultEnv(envVar string, defaultVal string) {
	if _, ok := os.LookupEnv(envVar); !ok {
		os.Setenv(envVar, defaultVal)
	}
}

func registerGDALDrivers() {
	// Drivers are interrogated in a linear scan when a file is opened,
	// so the formats we read and write go to the front of the list.
	// Anything the shared library lacks is reported and left to the
	// catch-all registration below.
	err := godal.RegisterRaster(godal.GTiff, godal.Memory, godal.DriverName("netCDF"), godal.DriverName("HDF5"))
	if err != nil {
		log.Debugf("gdal: priority driver registration: %v", err)
	}
	err = godal.RegisterVector(godal.GeoJSON)
	if err != nil {
		log.Debugf("gdal: GeoJSON driver registration: %v", err)
	}

	// Now register everything else
	godal.RegisterAll()
}
