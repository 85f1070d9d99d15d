package extract

import "github.com/zerodha/snmp-lama/pkg/models"

// OIDs holds every object identifier the extractors read. Column OIDs are
// table columns without the trailing index.
type OIDs struct {
	SystemRoot  string `koanf:"system_root"`
	SysDescr    string `koanf:"sys_descr"`
	SysContact  string `koanf:"sys_contact"`
	SysLocation string `koanf:"sys_location"`

	LoadRoot   string `koanf:"load_root"`
	LoadNames  string `koanf:"load_names"`
	LoadValues string `koanf:"load_values"`

	DiskRoot  string `koanf:"disk_root"`
	DiskPath  string `koanf:"disk_path"`
	DiskAvail string `koanf:"disk_avail"`

	ProcRoot  string `koanf:"proc_root"`
	ProcNames string `koanf:"proc_names"`

	ExecRoot   string `koanf:"exec_root"`
	ExecNames  string `koanf:"exec_names"`
	ExecOutput string `koanf:"exec_output"`

	IfDescr   string `koanf:"if_descr"`
	RouteDest string `koanf:"route_dest"`

	EverRun EverRunOIDs `koanf:"everrun"`
}

// EverRunOIDs are the Stratus everRun MIB objects.
type EverRunOIDs struct {
	Root         string `koanf:"root"`
	MemAvailable string `koanf:"mem_available"`
	VCPUTotal    string `koanf:"vcpu_total"`
	VCPUUsed     string `koanf:"vcpu_used"`
	StorageTotal string `koanf:"storage_total"`
	StorageUsed  string `koanf:"storage_used"`
	VMName       string `koanf:"vm_name"`
	VMState      string `koanf:"vm_state"`
	NodeName     string `koanf:"node_name"`
	NodeState    string `koanf:"node_state"`
	VolumeName   string `koanf:"volume_name"`
	VolumeSync   string `koanf:"volume_sync"`
	AlertSev     string `koanf:"alert_severity"`
}

// DefaultOIDs returns the net-snmp UCD-SNMP-MIB, MIB-2 and everRun defaults.
func DefaultOIDs() OIDs {
	return OIDs{
		SystemRoot:  "1.3.6.1.2.1.1",
		SysDescr:    "1.3.6.1.2.1.1.1.0",
		SysContact:  "1.3.6.1.2.1.1.4.0",
		SysLocation: "1.3.6.1.2.1.1.6.0",

		LoadRoot:   "1.3.6.1.4.1.2021.10",
		LoadNames:  "1.3.6.1.4.1.2021.10.1.2",
		LoadValues: "1.3.6.1.4.1.2021.10.1.3",

		DiskRoot:  "1.3.6.1.4.1.2021.9",
		DiskPath:  "1.3.6.1.4.1.2021.9.1.2",
		DiskAvail: "1.3.6.1.4.1.2021.9.1.7",

		ProcRoot:  "1.3.6.1.4.1.2021.2",
		ProcNames: "1.3.6.1.4.1.2021.2.1.2",

		ExecRoot:   "1.3.6.1.4.1.2021.50",
		ExecNames:  "1.3.6.1.4.1.2021.50.2",
		ExecOutput: "1.3.6.1.4.1.2021.50.101",

		IfDescr:   "1.3.6.1.2.1.2.2.1.2",
		RouteDest: "1.3.6.1.2.1.4.21.1.1",

		EverRun: EverRunOIDs{
			Root:         "1.3.6.1.4.1.458.115",
			MemAvailable: "1.3.6.1.4.1.458.115.1.1",
			VCPUTotal:    "1.3.6.1.4.1.458.115.1.2",
			VCPUUsed:     "1.3.6.1.4.1.458.115.1.3",
			StorageTotal: "1.3.6.1.4.1.458.115.1.5",
			StorageUsed:  "1.3.6.1.4.1.458.115.1.6",
			VMName:       "1.3.6.1.4.1.458.115.1.17.1.3",
			VMState:      "1.3.6.1.4.1.458.115.1.17.1.6",
			NodeName:     "1.3.6.1.4.1.458.115.1.19.1.3",
			NodeState:    "1.3.6.1.4.1.458.115.1.19.1.5",
			VolumeName:   "1.3.6.1.4.1.458.115.1.18.1.3",
			VolumeSync:   "1.3.6.1.4.1.458.115.1.18.1.4",
			AlertSev:     "1.3.6.1.4.1.458.115.1.10.1.2",
		},
	}
}

// Roots maps each section to the subtree walked for it.
func (o OIDs) Roots() map[models.Section]string {
	return map[models.Section]string{
		models.SectionSystem:     o.SystemRoot,
		models.SectionLoad:       o.LoadRoot,
		models.SectionDisk:       o.DiskRoot,
		models.SectionProcess:    o.ProcRoot,
		models.SectionExec:       o.ExecRoot,
		models.SectionInterfaces: o.IfDescr,
		models.SectionRoutes:     o.RouteDest,
		models.SectionEverRun:    o.EverRun.Root,
	}
}
