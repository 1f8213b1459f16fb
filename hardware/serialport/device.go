package serialport

import (
	"bufio"
	"context"
	"io"

	"github.com/wiemBe/RoboMap/internal/monitoring"
	"github.com/wiemBe/RoboMap/nav/engine"
	"go.bug.st/serial"
)

// Port is the minimal interface of an open serial port
type Port interface {
	io.ReadWriter
	io.Closer
}

// Device pairs the Sensor and Actuator sharing one port
type Device struct {
	port     Port
	sensor   *Sensor
	actuator *Actuator
}

// NewDevice wraps an open port
func NewDevice(port Port, cal Calibration) *Device {
	return &Device{
		port:     port,
		sensor:   NewSensor(cal),
		actuator: NewActuator(port),
	}
}

// Open opens the port at path and wraps it in a Device
func Open(path string, opts PortOptions, cal Calibration) (*Device, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return NewDevice(port, cal), nil
}

// Sensor returns the displacement sensor
func (d *Device) Sensor() *Sensor { return d.sensor }

// Actuator returns the command writer
func (d *Device) Actuator() *Actuator { return d.actuator }

// Monitor reads frames until ctx is done or the port closes. Malformed
// frames are logged and skipped.
func (d *Device) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(d.port)
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		for scan.Scan() {
			select {
			case lines <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			scanErr <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-scanErr:
			return err
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if line == "" {
				continue
			}
			if err := d.sensor.HandleLine(line); err != nil {
				monitoring.Logf("serialport: %v", err)
			}
		}
	}
}

// Close stops the controller and closes the port
func (d *Device) Close() error {
	d.actuator.Send(engine.Stop)
	return d.port.Close()
}
