// Package serialport connects the navigation engine to the motion
// controller over one serial line.
//
// The controller streams displacement frames as text lines "dx,dy[,dh]" in
// encoder counts and accepts single-letter movement commands (F, B, L, R, S)
// terminated by a newline. A Device owns the port: its Monitor goroutine
// feeds lines to a Sensor, and the control loop drains the Sensor through
// Poll and drives the Actuator.
package serialport
