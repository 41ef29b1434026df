package main

import (
	"flag"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	benchmarkCount = flag.Int("benchmark.count", 1000, "the random route composition count for benchmark")
	benchmarkStops = flag.Int("benchmark.stops", 2, "the waypoint count per composed route for benchmark")
	benchmarkSeed  = flag.Int64("benchmark.seed", 0, "the seed for benchmark")
	benchmarkCPU   = flag.Int("benchmark.cpu", 1, "the cpu count for benchmark")
)

func runBenchmark(server *GameServer) {
	log.Logger.SetLevel(logrus.WarnLevel)
	// 设置随机种子
	e := rand.New(rand.NewSource(*benchmarkSeed))
	// 随机生成benchmarkCount条途经点序列，起终点均匀采样自全部路网节点
	ids := server.engine.NodeIDs()
	if len(ids) == 0 {
		log.Fatalf("benchmark requires a non-empty road graph")
	}
	reqs := make([][]int64, *benchmarkCount)
	for i := 0; i < *benchmarkCount; i++ {
		waypoints := make([]int64, *benchmarkStops)
		for j := range waypoints {
			waypoints[j] = ids[e.Intn(len(ids))]
		}
		reqs[i] = waypoints
	}

	// 开始benchmark
	start := time.Now()
	var wg sync.WaitGroup
	var success atomic.Int32
	if *benchmarkCPU == 1 {
		for _, waypoints := range reqs {
			stats, err := server.engine.PreviewRoute(waypoints)
			if err != nil {
				log.Error("benchmark failed, err:", err)
			}
			if stats.Length > 0 {
				success.Add(1)
			}
		}
	} else {
		// 设置cpu数量
		runtime.GOMAXPROCS(*benchmarkCPU)
		wg.Add(*benchmarkCount)
		for _, waypoints := range reqs {
			go func(waypoints []int64) {
				defer wg.Done()
				stats, err := server.engine.PreviewRoute(waypoints)
				if err != nil {
					log.Error("benchmark failed, err:", err)
				}
				if stats.Length > 0 {
					success.Add(1)
				}
			}(waypoints)
		}
		wg.Wait()
	}
	timeCost := time.Since(start) * time.Duration(*benchmarkCPU)
	log.Error(
		"benchmark finished", "\n",
		"count:", *benchmarkCount, "\n",
		"time:", timeCost, "\n",
		"avg:", timeCost/time.Duration(*benchmarkCount), "\n",
		"success:", success.Load(), "\n",
	)
}
