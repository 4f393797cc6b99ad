package internal

// DefaultMaintenanceInterval is applied when a new vehicle arrives without an
// explicit service interval.
const DefaultMaintenanceInterval = 500

// MergeVehicle overlays an incoming record on an existing one. Fields absent
// from the import keep their stored value; odometer and hour-meter readings
// only ever move forward, so those take the max of old and new.
func MergeVehicle(existing VehicleRecord, incoming VehicleRecord) VehicleRecord {
	out := existing

	if incoming.Model != "" {
		out.Model = incoming.Model
	}
	if incoming.Department != "" {
		out.Department = incoming.Department
	}
	if incoming.Status != "" {
		out.Status = incoming.Status
	}
	if incoming.ImportedFrom != "" {
		out.ImportedFrom = incoming.ImportedFrom
	}
	if incoming.CurrentHours > out.CurrentHours {
		out.CurrentHours = incoming.CurrentHours
	}
	if incoming.CurrentKm > out.CurrentKm {
		out.CurrentKm = incoming.CurrentKm
	}
	if incoming.NextMaintenanceHours != 0 {
		out.NextMaintenanceHours = incoming.NextMaintenanceHours
	}
	if incoming.MaintenanceInterval != 0 {
		out.MaintenanceInterval = incoming.MaintenanceInterval
	}
	if incoming.ProjectID != nil {
		out.ProjectID = incoming.ProjectID
	}
	return out
}

// MergeErrorCode keeps stored text when the import leaves a field blank.
func MergeErrorCode(existing ErrorCodeRecord, incoming ErrorCodeRecord) ErrorCodeRecord {
	out := existing
	if incoming.Description != "" {
		out.Description = incoming.Description
	}
	if incoming.FixSteps != "" {
		out.FixSteps = incoming.FixSteps
	}
	return out
}
