// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// visitorNamespace 是本项目所有 Prometheus 指标使用的命名空间。
	visitorNamespace = "visitor"

	modeLabelName   = "mode"
	statusLabelName = "status"

	ModeSave = "save"
	ModeLoad = "load"

	StatusSuccess = "success"
	StatusFail    = "fail"
)

var (
	// buckets 为耗时直方图的桶划分，单位为毫秒。
	// [1 2 4 8 16 32 64 128 256 512 1024 2048 4096 8192 16384 32768 65536 1.31072e+05]
	buckets = prometheus.ExponentialBuckets(1, 2, 18)

	// nodeBuckets 为单次会话节点数的桶划分。
	nodeBuckets = prometheus.ExponentialBuckets(1, 4, 12)

	SessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: visitorNamespace,
			Name:      "sessions_total",
			Help:      "count of save/load sessions",
		}, []string{modeLabelName, statusLabelName})

	BytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: visitorNamespace,
			Name:      "bytes_total",
			Help:      "bytes written or read by sessions, after compression",
		}, []string{modeLabelName})

	Nodes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: visitorNamespace,
			Name:      "nodes",
			Help:      "node count of each session tree",
			Buckets:   nodeBuckets,
		}, []string{modeLabelName})

	SessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: visitorNamespace,
			Name:      "session_duration_ms",
			Help:      "time cost of each save/load session in milliseconds",
			Buckets:   buckets,
		}, []string{modeLabelName})

	registerOnce     sync.Once
	metricRegisterer prometheus.Registerer
)

// GetRegisterer 返回全局 Registerer，未调用 Register 时返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册所有指标，重复调用只生效一次。
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(SessionsTotal)
		r.MustRegister(BytesTotal)
		r.MustRegister(Nodes)
		r.MustRegister(SessionDuration)
		metricRegisterer = r
	})
}

// Status 把操作结果映射为 status 标签值。
func Status(err error) string {
	if err != nil {
		return StatusFail
	}
	return StatusSuccess
}
