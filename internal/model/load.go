package model

// Load is a tagged-variant sink definition: where the final Matrix of a
// pipeline run is pushed. Concrete kinds are dispatched by the Load
// processor the ETL engine selects for each Kind() present in a
// Configuration.
type Load interface {
	Kind() string
	ID() string
}

// RefocusLoad pushes the Matrix back to a Refocus-like sample endpoint.
type RefocusLoad struct {
	EndpointId string
	Subject    string
}

func (l RefocusLoad) Kind() string { return "refocus" }
func (l RefocusLoad) ID() string   { return l.EndpointId + "/" + l.Subject }

// InfluxLoad pushes the Matrix as line-protocol-shaped points to an
// Influx-like time-series sink. [EXPANSION] per SPEC_FULL.md §4.10: a second
// concrete Load kind exercising the dispatch path with more than one member.
type InfluxLoad struct {
	EndpointId  string
	Measurement string
}

func (l InfluxLoad) Kind() string { return "influx" }
func (l InfluxLoad) ID() string   { return l.EndpointId + "/" + l.Measurement }
