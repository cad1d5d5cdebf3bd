// Package telemetry tracks the robot's sport mode state.
package telemetry

// IMUState is the inertial measurement part of the sport state.
type IMUState struct {
	Quaternion    []float64 `json:"quaternion"`
	Gyroscope     []float64 `json:"gyroscope"`
	Accelerometer []float64 `json:"accelerometer"`
	RPY           []float64 `json:"rpy"`
	Temperature   float64   `json:"temperature"`
}

// SportState mirrors the rt/lf/sportmodestate message.
type SportState struct {
	Mode             int       `json:"mode"`
	Progress         float64   `json:"progress"`
	GaitType         int       `json:"gait_type"`
	FootRaiseHeight  float64   `json:"foot_raise_height"`
	Position         []float64 `json:"position"`
	BodyHeight       float64   `json:"body_height"`
	Velocity         []float64 `json:"velocity"`
	YawSpeed         float64   `json:"yaw_speed"`
	RangeObstacle    []float64 `json:"range_obstacle"`
	FootForce        []float64 `json:"foot_force"`
	FootPositionBody []float64 `json:"foot_position_body"`
	FootSpeedBody    []float64 `json:"foot_speed_body"`
	IMU              IMUState  `json:"imu_state"`
}
