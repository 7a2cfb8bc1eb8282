package app

import (
	"fmt"

	"github.com/relabs-tech/sensor_hub/internal/config"
	"github.com/relabs-tech/sensor_hub/internal/iio"
)

// RunSensorList discovers bus-attached sensors and prints one line per
// descriptor, then exits.
func RunSensorList() error {
	cfg := config.Get()

	ctx := iio.CreateContext()
	if ctx == nil {
		fmt.Println("no sensor bus present")
		return nil
	}

	reg := iio.NewRegistry(int32(cfg.SensorBaseHandle))
	reg.Update(ctx)

	sensors := reg.Sensors()
	if len(sensors) == 0 {
		fmt.Println("no usable sensors discovered")
		return nil
	}

	fmt.Printf("%-8s %-28s %-20s %-8s %-12s %s\n",
		"HANDLE", "NAME", "VENDOR", "TYPE", "MAX RANGE", "RESOLUTION")
	for _, s := range sensors {
		d := s.Descriptor()
		fmt.Printf("%-8d %-28s %-20s %-8d %-12g %g\n",
			d.Handle, d.Name, d.Vendor, d.Type, d.MaxRange, d.Resolution)
	}
	return nil
}
