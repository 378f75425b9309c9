package enum

type EntityType string

const (
	TENANT     EntityType = "TENANT"
	LOG_RECORD EntityType = "LOG_RECORD"
)

func (entityType EntityType) String() string {
	return string(entityType)
}

func GetEntityType(s string) EntityType {
	return EntityType(s)
}
