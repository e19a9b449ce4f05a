package types

// DeviceInfo is a snapshot of the device state collected through the shell.
type DeviceInfo struct {
	DeviceModel   string `json:"deviceModel"`
	DeviceName    string `json:"deviceName"`
	KernelVersion string `json:"kernelVersion"`
	Hostname      string `json:"hostname"`
	Uptime        string `json:"uptime"`
	SystemTime    string `json:"systemTime"`

	CPUModel     string  `json:"cpuModel"`
	CPUCores     int     `json:"cpuCores"`
	CPUArch      string  `json:"cpuArch"`
	CPUFrequency string  `json:"cpuFrequency"`
	CPULoad      float64 `json:"cpuLoad"` // 1 minute load average

	MemTotal uint64 `json:"memTotal"` // bytes
	MemUsed  uint64 `json:"memUsed"`  // bytes
	MemFree  uint64 `json:"memFree"`  // bytes

	StorageTotal uint64 `json:"storageTotal"` // bytes
	StorageUsed  uint64 `json:"storageUsed"`  // bytes
	StorageFree  uint64 `json:"storageFree"`  // bytes

	IPAddress     string `json:"ipAddress"`
	MACAddress    string `json:"macAddress"`
	NetworkStatus string `json:"networkStatus"` // "online", "offline", "unknown"

	Processes    int    `json:"processes"`
	Users        int    `json:"users"`
	BatteryLevel string `json:"batteryLevel"`
}

// DeviceControls is the last applied screen and torch state.
type DeviceControls struct {
	Brightness    int    `json:"brightness"`    // percent
	ScreenTimeout string `json:"screenTimeout"` // label from the timeout table
	TimeoutSec    int    `json:"timeoutSec"`
	Torch         bool   `json:"torch"`
}

// BrightnessRequest sets the screen brightness.
type BrightnessRequest struct {
	Brightness int `json:"brightness"`
}

// ScreenTimeoutRequest selects a screen-on time by label.
type ScreenTimeoutRequest struct {
	Timeout string `json:"timeout"`
}

// TorchRequest switches the torch. A nil On toggles it.
type TorchRequest struct {
	On *bool `json:"on,omitempty"`
}
