package mpu

// Raw holds one uncalibrated six-axis sample as read from the device
// registers. Values are raw LSB counts; scaling depends on the configured
// accelerometer and gyroscope ranges.
type Raw struct {
	Ax int16 `json:"ax"`
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`
	Gx int16 `json:"gx"`
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`
}
