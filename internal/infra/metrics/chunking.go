package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(chunksProduced, documentsChunked) }

var chunksProduced = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "chunking_chunks_total",
		Help: "Total number of token-bounded chunks produced.",
	},
)

var documentsChunked = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "chunking_documents_total",
		Help: "Total number of documents passed through the chunker.",
	},
)

func AddChunksProduced(n int) {
	documentsChunked.Inc()
	chunksProduced.Add(float64(n))
}
