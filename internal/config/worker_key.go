package config

type WorkerKeyStruct struct {
	PersistSnapshotsQueue string
	PersistReportsQueue   string
}

var WorkerKey = &WorkerKeyStruct{
	PersistSnapshotsQueue: "persist_snapshots_queue",
	PersistReportsQueue:   "persist_reports_queue",
}
